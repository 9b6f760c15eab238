package migrations

import (
	"fmt"

	"awards-voting-backend/models"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

const ballotIndex = "idx_voting_responses_ballot"

// Run migrates the voting tables and the directory tables they read from.
func Run(db *gorm.DB, log *zap.Logger) error {
	log.Info("running migrations")

	if err := db.AutoMigrate(
		&models.Season{},
		&models.Profile{},
		&models.Team{},
		&models.Judge{},
		&models.RetailerListing{},
		&models.ManufacturerListing{},
		&models.Event{},
		&models.VotingSession{},
		&models.VotingCategory{},
		&models.VotingQuestion{},
		&models.VotingResponse{},
	); err != nil {
		return fmt.Errorf("auto migrate: %w", err)
	}

	return EnsureBallotIndex(db, log)
}

// EnsureBallotIndex creates the (session, question, voter) unique index when a
// pre-existing responses table lacks it. It is the storage-level guarantee
// behind one ballot per voter.
func EnsureBallotIndex(db *gorm.DB, log *zap.Logger) error {
	m := db.Migrator()
	if m.HasIndex(&models.VotingResponse{}, ballotIndex) {
		log.Debug("migration skipped: ballot index exists")
		return nil
	}

	if err := m.CreateIndex(&models.VotingResponse{}, ballotIndex); err != nil {
		log.Error("migration failed: ballot index", zap.Error(err))
		return fmt.Errorf("create %s: %w", ballotIndex, err)
	}
	log.Info("migration applied: ballot index created")
	return nil
}
