// package models defines the data model for persisted record room entities
package models
