package testutil

import (
	"fmt"
	"testing"

	"investtrack/internal/models"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// memberGraphDDL creates the member-owned tables with the same foreign keys
// the migrations declare, deferred where they are deferred in Postgres.
var memberGraphDDL = []string{
	`CREATE TABLE files (
		id            uuid PRIMARY KEY,
		created_at    datetime,
		updated_at    datetime,
		firm_id       uuid NOT NULL REFERENCES firms (id) DEFERRABLE INITIALLY DEFERRED,
		member_id     uuid REFERENCES members (id) DEFERRABLE INITIALLY DEFERRED,
		original_name text NOT NULL,
		mime_type     text NOT NULL,
		size          integer NOT NULL,
		checksum      varchar(64) NOT NULL,
		storage_key   text NOT NULL,
		tags          JSON
	)`,
	`CREATE UNIQUE INDEX idx_files_storage_key ON files (storage_key)`,
	`CREATE TABLE members (
		id                        uuid PRIMARY KEY,
		created_at                datetime,
		updated_at                datetime,
		member_type               varchar(16) NOT NULL,
		name                      text NOT NULL,
		email                     text NOT NULL,
		mobile_country_code       varchar(2),
		mobile_number             text NOT NULL,
		office_number             text,
		designation               text,
		address_street_line1      text,
		address_street_line2      text,
		address_locality          text,
		address_state             text,
		address_region            text,
		address_country           text,
		address_postal_code       text,
		comment                   text,
		is_gift                   numeric NOT NULL DEFAULT false,
		version                   integer NOT NULL DEFAULT 1,
		firm_id                   uuid NOT NULL REFERENCES firms (id) DEFERRABLE INITIALLY DEFERRED,
		business_card_front_id    uuid REFERENCES files (id) ON DELETE SET NULL DEFERRABLE INITIALLY DEFERRED,
		business_card_back_id     uuid REFERENCES files (id) ON DELETE SET NULL DEFERRABLE INITIALLY DEFERRED,
		sectors                   JSON,
		regional_focus            JSON,
		fund_size_global_exposure numeric(20,2),
		fund_size_indian_exposure numeric(20,2),
		is_existing_investor      numeric NOT NULL DEFAULT false,
		holding_size              numeric(20,2),
		last_holding_date         datetime
	)`,
	`CREATE UNIQUE INDEX idx_members_email ON members (email)`,
	`CREATE UNIQUE INDEX idx_members_mobile_number ON members (mobile_number)`,
	`CREATE TABLE member_firm_history (
		id              uuid PRIMARY KEY,
		created_at      datetime,
		updated_at      datetime,
		member_id       uuid NOT NULL REFERENCES members (id) DEFERRABLE INITIALLY DEFERRED,
		firm_id         uuid NOT NULL REFERENCES firms (id),
		seq             integer NOT NULL,
		date_of_joining datetime NOT NULL
	)`,
	`CREATE TABLE interactions (
		id                  uuid PRIMARY KEY,
		created_at          datetime,
		updated_at          datetime,
		firm_id             uuid NOT NULL REFERENCES firms (id),
		member_id           uuid NOT NULL REFERENCES members (id) DEFERRABLE INITIALLY DEFERRED,
		content             text NOT NULL,
		date_of_interaction datetime NOT NULL
	)`,
	`CREATE TABLE events (
		id                 uuid PRIMARY KEY,
		created_at         datetime,
		updated_at         datetime,
		firm_id            uuid NOT NULL REFERENCES firms (id),
		member_id          uuid NOT NULL REFERENCES members (id) DEFERRABLE INITIALLY DEFERRED,
		name               text NOT NULL,
		type               text NOT NULL,
		mode               varchar(16) NOT NULL,
		location           text,
		start_date         datetime NOT NULL,
		end_date           datetime NOT NULL,
		rkl_attendees      text,
		next_step          varchar(16) NOT NULL DEFAULT 'TBD',
		is_invited         numeric NOT NULL DEFAULT false,
		exchange_intimated numeric NOT NULL DEFAULT false
	)`,
}

// SetupTestDBWithForeignKeys is SetupTestDB with foreign key enforcement on
// and the member tables carrying their production constraints.
func SetupTestDBWithForeignKeys(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:fktestdb%d?mode=memory&cache=shared&_foreign_keys=1", dbCounter.Add(1))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		DisableForeignKeyConstraintWhenMigrating: true,
		Logger:                                   logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("failed to open test database: %v", err)
	}

	for _, stmt := range memberGraphDDL {
		if err := db.Exec(stmt).Error; err != nil {
			t.Fatalf("failed to create member tables: %v", err)
		}
	}
	err = db.AutoMigrate(
		&models.User{},
		&models.Token{},
		&models.Firm{},
		&models.Coverage{},
		&models.FundFactsheet{},
		&models.BlobRecord{},
		&models.AuditLog{},
	)
	if err != nil {
		t.Fatalf("failed to migrate test database: %v", err)
	}

	var enabled int
	if err := db.Raw("PRAGMA foreign_keys").Scan(&enabled).Error; err != nil || enabled != 1 {
		t.Fatalf("foreign keys are not enforced (pragma=%d, err=%v)", enabled, err)
	}
	return db
}
