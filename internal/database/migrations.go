package database

import (
	"fmt"
	"strings"

	log "github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

type index struct {
	table   string
	name    string
	columns []string
}

// taskIndexes back the organization-scoped list query and the membership
// lookups made on every request
var taskIndexes = []index{
	{"tasks", "idx_tasks_organization_id_id", []string{"organization_id", "id"}},
	{"tasks", "idx_tasks_organization_id_due_date", []string{"organization_id", "due_date"}},
	{"organization_members", "idx_org_members_user_id_org_id", []string{"user_id", "organization_id"}},
}

// AddIndexes creates the composite indexes AutoMigrate does not derive from
// struct tags. Existing indexes are skipped.
func AddIndexes(db *gorm.DB) error {
	migrator := db.Migrator()

	for _, idx := range taskIndexes {
		if migrator.HasIndex(idx.table, idx.name) {
			log.WithField("index", idx.name).Debug("Index already exists, skipping")
			continue
		}

		sql := fmt.Sprintf("CREATE INDEX %s ON %s (%s)", idx.name, idx.table, strings.Join(idx.columns, ", "))
		if err := db.Exec(sql).Error; err != nil {
			return fmt.Errorf("failed to create index %s: %w", idx.name, err)
		}

		log.WithFields(log.Fields{
			"index": idx.name,
			"table": idx.table,
		}).Info("Created index")
	}

	return nil
}
