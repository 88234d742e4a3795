package main

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/xailab/xai-review/internal/datastore"
	"github.com/xailab/xai-review/internal/datastore/entities"
	"github.com/xailab/xai-review/internal/logger"
)

// copyOrder lists tables parents first so foreign keys resolve on insert.
var copyOrder = []string{"users", "images", "masks", "preferences", "preference_events"}

// Migrator copies rows from a source database into a target database.
type Migrator struct {
	cfg    Config
	out    io.Writer
	source *datastore.Manager
	target *datastore.Manager
}

// MigrationStats tracks migration statistics.
type MigrationStats struct {
	StartTime time.Time
	EndTime   time.Time
	Tables    []TableStats
}

// TableStats tracks per-table migration statistics.
type TableStats struct {
	Name      string
	Migrated  int64
	Skipped   int64
	Errors    int64
	Duration  time.Duration
	BatchSize int
}

// Print writes the migration summary as a table.
func (s *MigrationStats) Print(w io.Writer) {
	tw := table.NewWriter()
	tw.SetStyle(table.StyleRounded)
	tw.SetTitle("Migration Summary (" + s.EndTime.Sub(s.StartTime).Round(time.Millisecond).String() + ")")
	tw.AppendHeader(table.Row{"Table", "Migrated", "Skipped", "Errors", "Duration"})

	var totalMigrated, totalSkipped, totalErrors int64
	for _, t := range s.Tables {
		tw.AppendRow(table.Row{t.Name, t.Migrated, t.Skipped, t.Errors, t.Duration.Round(time.Millisecond)})
		totalMigrated += t.Migrated
		totalSkipped += t.Skipped
		totalErrors += t.Errors
	}
	tw.AppendFooter(table.Row{"Total", totalMigrated, totalSkipped, totalErrors, ""})
	tw.SetColumnConfigs([]table.ColumnConfig{
		{Number: 2, Align: text.AlignRight},
		{Number: 3, Align: text.AlignRight},
		{Number: 4, Align: text.AlignRight},
		{Number: 5, Align: text.AlignRight},
	})

	_, _ = fmt.Fprintln(w, tw.Render())
}

// TotalErrors sums failed rows across tables.
func (s *MigrationStats) TotalErrors() int64 {
	var n int64
	for _, t := range s.Tables {
		n += t.Errors
	}
	return n
}

// NewMigrator opens both databases.
func NewMigrator(ctx context.Context, cfg *Config, out io.Writer) (*Migrator, error) {
	level := logger.LogLevelWarn
	if cfg.Verbose {
		level = logger.LogLevelDebug
	}
	log := logger.NewSlogLogger(out, level)

	m := &Migrator{cfg: *cfg, out: out}

	source, err := datastore.Open(ctx, &datastore.Config{URL: cfg.SourceURL, Logger: log.Module("source")})
	if err != nil {
		return nil, fmt.Errorf("failed to open source database: %w", err)
	}
	m.source = source

	target, err := datastore.Open(ctx, &datastore.Config{URL: cfg.TargetURL, Logger: log.Module("target")})
	if err != nil {
		m.Close()
		return nil, fmt.Errorf("failed to open target database: %w", err)
	}
	m.target = target

	m.printf("Database connections established (%s -> %s)\n", source.Dialect(), target.Dialect())

	return m, nil
}

// Close closes both database connections.
func (m *Migrator) Close() {
	if m.source != nil {
		_ = m.source.Close()
	}
	if m.target != nil {
		_ = m.target.Close()
	}
}

// Run executes the full copy.
func (m *Migrator) Run(ctx context.Context) (*MigrationStats, error) {
	stats := &MigrationStats{StartTime: time.Now()}

	if m.cfg.AutoMigrate {
		m.printf("Creating tables in target database...\n")
		if err := m.target.Migrate(ctx); err != nil {
			return nil, fmt.Errorf("failed to auto-migrate tables: %w", err)
		}
	}

	if m.cfg.Clean {
		if err := m.cleanTables(ctx); err != nil {
			return nil, fmt.Errorf("failed to clean tables: %w", err)
		}
	}

	tables := []struct {
		name    string
		migrate func(context.Context, int) (*TableStats, error)
	}{
		{"users", m.migrateUsers},
		{"images", m.migrateFrames},
		{"masks", m.migrateMasks},
		{"preferences", m.migratePreferences},
		{"preference_events", m.migratePreferenceEvents},
	}

	for _, t := range tables {
		tableStats, err := t.migrate(ctx, m.cfg.BatchSize)
		if err != nil {
			return stats, fmt.Errorf("failed to migrate %s: %w", t.name, err)
		}
		stats.Tables = append(stats.Tables, *tableStats)
	}

	if err := m.resetSequences(ctx); err != nil {
		return stats, fmt.Errorf("failed to reset sequences: %w", err)
	}

	stats.EndTime = time.Now()
	return stats, nil
}

// cleanTables deletes target rows children first.
func (m *Migrator) cleanTables(ctx context.Context) error {
	m.printf("Cleaning target tables...\n")
	db := m.target.DB().WithContext(ctx)
	for i := len(copyOrder) - 1; i >= 0; i-- {
		name := copyOrder[i]
		if err := db.Exec("DELETE FROM " + name).Error; err != nil {
			return fmt.Errorf("could not clean table %s: %w", name, err)
		}
		if m.cfg.Verbose {
			m.printf("  Cleaned: %s\n", name)
		}
	}
	return nil
}

// resetSequences moves PostgreSQL id sequences past the copied ids so later
// inserts do not collide. Other dialects derive the next id from the table.
func (m *Migrator) resetSequences(ctx context.Context) error {
	if m.target.Dialect() != datastore.DialectPostgres {
		return nil
	}
	db := m.target.DB().WithContext(ctx)
	for _, name := range copyOrder {
		stmt := fmt.Sprintf(
			"SELECT setval(pg_get_serial_sequence('%[1]s', 'id'), COALESCE((SELECT MAX(id) FROM %[1]s), 0) + 1, false)",
			name)
		if err := db.Exec(stmt).Error; err != nil {
			return fmt.Errorf("%s: %w", name, err)
		}
	}
	return nil
}

func (m *Migrator) printf(format string, args ...any) {
	_, _ = fmt.Fprintf(m.out, format, args...)
}

// migrateTable copies one table in primary key order using batched inserts.
func migrateTable[T any](ctx context.Context, m *Migrator, tableName string, batchSize int) (*TableStats, error) {
	start := time.Now()
	stats := &TableStats{
		Name:      tableName,
		BatchSize: batchSize,
	}

	m.printf("Migrating %s...\n", tableName)

	src := m.source.DB().WithContext(ctx)
	dst := m.target.DB().WithContext(ctx)

	var sourceCount int64
	if err := src.Model(new(T)).Count(&sourceCount).Error; err != nil {
		return stats, fmt.Errorf("failed to count source records: %w", err)
	}

	if sourceCount == 0 {
		m.printf("  %s: no records to migrate\n", tableName)
		stats.Duration = time.Since(start)
		return stats, nil
	}

	var processed int64
	batchNum := 0

	err := src.Model(new(T)).FindInBatches(new([]T), batchSize, func(tx *gorm.DB, batch int) error {
		batchNum++
		records := tx.Statement.Dest.(*[]T)

		// Existing rows are skipped so a copy can be resumed.
		result := dst.Omit(clause.Associations).Clauses(clause.OnConflict{DoNothing: true}).Create(records)
		if result.Error != nil {
			stats.Errors += int64(len(*records))
			m.printf("  Batch %d error: %v\n", batchNum, result.Error)
			return nil //nolint:nilerr // keep copying the remaining batches
		}

		stats.Migrated += result.RowsAffected
		stats.Skipped += int64(len(*records)) - result.RowsAffected
		processed += int64(len(*records))

		if m.cfg.Verbose || batchNum%10 == 0 {
			m.printf("  %s: %d/%d (%.1f%%)\n", tableName, processed, sourceCount,
				float64(processed)/float64(sourceCount)*100)
		}

		return nil
	}).Error

	if err != nil {
		return stats, err
	}

	stats.Duration = time.Since(start)
	m.printf("  %s: completed (%d migrated, %d skipped, %d errors) in %s\n",
		tableName, stats.Migrated, stats.Skipped, stats.Errors, stats.Duration.Round(time.Millisecond))

	return stats, nil
}

func (m *Migrator) migrateUsers(ctx context.Context, batchSize int) (*TableStats, error) {
	return migrateTable[entities.User](ctx, m, "users", batchSize)
}

func (m *Migrator) migrateFrames(ctx context.Context, batchSize int) (*TableStats, error) {
	return migrateTable[entities.Frame](ctx, m, "images", batchSize)
}

func (m *Migrator) migrateMasks(ctx context.Context, batchSize int) (*TableStats, error) {
	return migrateTable[entities.Mask](ctx, m, "masks", batchSize)
}

func (m *Migrator) migratePreferences(ctx context.Context, batchSize int) (*TableStats, error) {
	return migrateTable[entities.Preference](ctx, m, "preferences", batchSize)
}

func (m *Migrator) migratePreferenceEvents(ctx context.Context, batchSize int) (*TableStats, error) {
	return migrateTable[entities.PreferenceEvent](ctx, m, "preference_events", batchSize)
}
