package repository

import "gorm.io/gorm"

// AutoMigrate creates or alters the ledger tables from the entities. Used for
// sqlite and throwaway databases; postgres deployments run the goose files.
func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(&CustomerEntity{}, &TransactionEntity{})
}
