// Package models holds persistence models for aggregates whose domain
// types carry no GORM mapping. Each model owns the table schema and the
// ToDomain/FromDomain conversions; domain entities with their own GORM
// tags persist directly and have no model here.
package models
