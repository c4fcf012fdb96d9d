// Package models contains the GORM persistence models of the fee ledger.
//
// Models are kept apart from the domain types so the domain stays free of ORM
// tags. Each model has a ToDomain method and a ...FromDomain constructor, and
// its columns follow the SQL migrations in the migrations directory.
package models
