package database

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"litebridge/trace"

	"github.com/rs/zerolog/log"
	"gorm.io/gorm"
)

const (
	walSuffix       = "-wal"
	shmSuffix       = "-shm"
	journalSuffix   = "-journal"
	backupSuffix    = ".bak"
	depositedSuffix = ".deposited"
)

// PassiveCheckpoint checkpoints as many WAL frames as possible without
// waiting for readers or writers.
func (db *Database) PassiveCheckpoint(ctx context.Context) error {
	return db.checkpoint(ctx, "PASSIVE")
}

// TruncateCheckpoint checkpoints every frame and truncates the WAL file.
func (db *Database) TruncateCheckpoint(ctx context.Context) error {
	return db.checkpoint(ctx, "TRUNCATE")
}

func (db *Database) checkpoint(ctx context.Context, mode string) error {
	release := db.enter()
	defer release()
	orm, err := db.session(ctx)
	if err != nil {
		return err
	}
	return db.bridge(orm.Exec("PRAGMA wal_checkpoint(" + mode + ")").Error)
}

// Paths returns every file that belongs to this database: the main file,
// its WAL, shared-memory and rollback journal files, the backup and the
// deposit directory.
func (db *Database) Paths() []string {
	return []string{
		db.path,
		db.path + walSuffix,
		db.path + shmSuffix,
		db.path + journalSuffix,
		db.backupPath(),
		db.depositedPath(),
	}
}

func (db *Database) mainFiles() []string {
	return []string{db.path, db.path + walSuffix, db.path + shmSuffix, db.path + journalSuffix}
}

func (db *Database) backupPath() string    { return db.path + backupSuffix }
func (db *Database) depositedPath() string { return db.path + depositedSuffix }

// FileSize returns the total size of the files in Paths, directories included.
func (db *Database) FileSize() (int64, error) {
	var total int64
	for _, p := range db.Paths() {
		err := filepath.Walk(p, func(_ string, info os.FileInfo, err error) error {
			if err != nil {
				return err
			}
			if !info.IsDir() {
				total += info.Size()
			}
			return nil
		})
		if err != nil && !errors.Is(err, os.ErrNotExist) {
			return 0, fmt.Errorf("sizing %s: %w", p, err)
		}
	}
	return total, nil
}

// RemoveFiles closes the database and deletes every file in Paths.
func (db *Database) RemoveFiles() error {
	var removeErr error
	err := db.Close(func() {
		for _, p := range db.Paths() {
			if err := os.RemoveAll(p); err != nil {
				removeErr = errors.Join(removeErr, err)
			}
		}
	})
	return errors.Join(err, removeErr)
}

// MoveFiles closes the database and moves every existing file in Paths into
// dir. The Database keeps its path; it opens a new file on next use.
func (db *Database) MoveFiles(dir string) error {
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return fmt.Errorf("creating %s: %w", dir, err)
	}
	var moveErr error
	err := db.Close(func() {
		moveErr = moveExisting(db.Paths(), dir)
	})
	return errors.Join(err, moveErr)
}

func moveExisting(paths []string, dir string) error {
	var errs error
	for _, p := range paths {
		if _, err := os.Stat(p); err != nil {
			continue
		}
		if err := os.Rename(p, filepath.Join(dir, filepath.Base(p))); err != nil {
			errs = errors.Join(errs, err)
		}
	}
	return errs
}

// FilterBackup sets which tables a Backup keeps. fn returns false for the
// tables to leave out; nil keeps everything.
func (db *Database) FilterBackup(fn func(table string) bool) {
	db.configMu.Lock()
	defer db.configMu.Unlock()
	db.backupFilter = fn
}

// Backup writes a consistent copy of the database next to it. Retrieve uses
// the copy as a source when the main file is damaged.
func (db *Database) Backup(ctx context.Context) error {
	release := db.enter()
	defer release()

	orm, err := db.session(ctx)
	if err != nil {
		return err
	}

	tmp := db.backupPath() + ".tmp"
	if err := os.Remove(tmp); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("clearing stale backup: %w", err)
	}
	if err := orm.Exec("VACUUM INTO ?", tmp).Error; err != nil {
		return db.bridge(err)
	}

	db.configMu.RLock()
	filter := db.backupFilter
	db.configMu.RUnlock()
	if filter != nil {
		if err := db.dropFiltered(orm, tmp, filter); err != nil {
			os.Remove(tmp) //nolint:errcheck // best effort on error path
			return err
		}
	}

	if err := os.Rename(tmp, db.backupPath()); err != nil {
		return fmt.Errorf("installing backup: %w", err)
	}
	log.Debug().Str("path", db.path).Msg("backup written")
	return nil
}

func (db *Database) dropFiltered(orm *gorm.DB, file string, keep func(string) bool) error {
	return orm.Connection(func(conn *gorm.DB) error {
		if err := conn.Exec("ATTACH DATABASE ? AS backup", file).Error; err != nil {
			return db.bridge(err)
		}
		defer detach(conn, "backup")

		tables, err := listTables(conn, "backup")
		if err != nil {
			return err
		}
		for _, t := range tables {
			if keep(t.name) {
				continue
			}
			if err := conn.Exec("DROP TABLE backup." + quoteIdent(t.name)).Error; err != nil {
				return db.bridge(err)
			}
		}
		return nil
	})
}

// Deposit closes the database and moves its main files into a new deposit
// directory, leaving an empty database at the same path. Deposited data is
// not lost: Retrieve reads it back.
func (db *Database) Deposit() error {
	dir := filepath.Join(db.depositedPath(), strconv.FormatInt(time.Now().UnixNano(), 10))
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return fmt.Errorf("creating deposit: %w", err)
	}
	var moveErr error
	err := db.Close(func() {
		moveErr = moveExisting(db.mainFiles(), dir)
	})
	if err := errors.Join(err, moveErr); err != nil {
		return err
	}
	log.Info().Str("path", db.path).Str("deposit", dir).Msg("database deposited")
	return nil
}

// ContainsDepositedFiles reports whether any deposit exists.
func (db *Database) ContainsDepositedFiles() bool {
	return len(db.deposits()) > 0
}

// RemoveDepositedFiles deletes every deposit.
func (db *Database) RemoveDepositedFiles() error {
	if err := os.RemoveAll(db.depositedPath()); err != nil {
		return fmt.Errorf("removing deposits: %w", err)
	}
	return nil
}

// deposits returns deposited database files, newest first.
func (db *Database) deposits() []string {
	entries, err := os.ReadDir(db.depositedPath())
	if err != nil {
		return nil
	}
	base := filepath.Base(db.path)
	var out []string
	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		p := filepath.Join(db.depositedPath(), e.Name(), base)
		if _, err := os.Stat(p); err == nil {
			out = append(out, p)
		}
	}
	sort.Sort(sort.Reverse(sort.StringSlice(out)))
	return out
}

// Retrieve rebuilds the database from everything that is left of it: the
// current file, the deposits and the backup, in that order. The current
// file is deposited first, so a damaged main file is read like any other
// source. Rows already present win over rows read later.
//
// progress, which may be nil, is called after each table with the overall
// percentage in [0, 1] and the increment since the previous call. The
// returned score is the fraction of tables copied without error.
func (db *Database) Retrieve(ctx context.Context, progress func(percentage, increment float64)) (float64, error) {
	if _, err := os.Stat(db.path); err == nil {
		if err := db.Deposit(); err != nil {
			return 0, err
		}
	}

	var sources []string
	sources = append(sources, db.deposits()...)
	if _, err := os.Stat(db.backupPath()); err == nil {
		sources = append(sources, db.backupPath())
	}

	release := db.enter()
	defer release()

	orm, err := db.session(ctx)
	if err != nil {
		return 0, err
	}

	var attempted, succeeded int
	var done float64
	report := func(inc float64) {
		done += inc
		if progress != nil {
			progress(done, inc)
		}
	}

	for _, src := range sources {
		share := 1 / float64(len(sources))
		err := orm.Connection(func(conn *gorm.DB) error {
			a, s := db.retrieveFrom(conn, src, share, report)
			attempted += a
			succeeded += s
			return nil
		})
		if err != nil {
			return 0, err
		}
		if err := ctx.Err(); err != nil {
			return 0, db.bridge(err)
		}
	}
	if done < 1 {
		report(1 - done)
	}

	score := 1.0
	if attempted > 0 {
		score = float64(succeeded) / float64(attempted)
	}
	trace.ClearCorrupted(db.path)
	log.Info().Str("path", db.path).Int("sources", len(sources)).Float64("score", score).Msg("database retrieved")
	return score, nil
}

// retrieveFrom copies every table of src into main on conn and returns how
// many tables it attempted and how many succeeded.
func (db *Database) retrieveFrom(conn *gorm.DB, src string, share float64, report func(float64)) (attempted, succeeded int) {
	if err := conn.Exec("ATTACH DATABASE ? AS source", src).Error; err != nil {
		log.Warn().Err(err).Str("source", src).Msg("retrieve: cannot attach")
		report(share)
		return 1, 0
	}
	defer detach(conn, "source")

	tables, err := listTables(conn, "source")
	if err != nil || len(tables) == 0 {
		if err != nil {
			log.Warn().Err(err).Str("source", src).Msg("retrieve: cannot read schema")
			attempted = 1
		}
		report(share)
		return attempted, 0
	}

	existing, _ := listTables(conn, "main")
	have := make(map[string]bool, len(existing))
	for _, t := range existing {
		have[t.name] = true
	}

	step := share / float64(len(tables))
	for _, t := range tables {
		attempted++
		if err := copyTable(conn, t, have); err != nil {
			log.Warn().Err(err).Str("source", src).Str("table", t.name).Msg("retrieve: table skipped")
		} else {
			succeeded++
		}
		report(step)
	}
	copyIndexes(conn)
	return attempted, succeeded
}

func copyTable(conn *gorm.DB, t schemaObject, have map[string]bool) error {
	if !have[t.name] {
		if err := conn.Exec(t.sql).Error; err != nil {
			return err
		}
		have[t.name] = true
	}
	q := quoteIdent(t.name)
	return conn.Exec("INSERT OR IGNORE INTO main." + q + " SELECT * FROM source." + q).Error
}

func copyIndexes(conn *gorm.DB) {
	var idx []schemaObject
	rows, err := conn.Raw("SELECT name, sql FROM source.sqlite_master WHERE type = 'index' AND sql IS NOT NULL").Rows()
	if err != nil {
		return
	}
	for rows.Next() {
		var o schemaObject
		if rows.Scan(&o.name, &o.sql) == nil {
			idx = append(idx, o)
		}
	}
	rows.Close()

	for _, o := range idx {
		stmt := o.sql
		if !strings.Contains(strings.ToUpper(stmt), "IF NOT EXISTS") {
			stmt = strings.Replace(stmt, "INDEX", "INDEX IF NOT EXISTS", 1)
		}
		if err := conn.Exec(stmt).Error; err != nil {
			log.Warn().Err(err).Str("index", o.name).Msg("retrieve: cannot recreate index")
		}
	}
}

func detach(conn *gorm.DB, schema string) {
	if err := conn.Exec("DETACH DATABASE " + schema).Error; err != nil {
		log.Warn().Err(err).Str("schema", schema).Msg("cannot detach database")
	}
}

type schemaObject struct {
	name string
	sql  string
}

func listTables(conn *gorm.DB, schema string) ([]schemaObject, error) {
	rows, err := conn.Raw("SELECT name, sql FROM " + schema + ".sqlite_master WHERE type = 'table' AND name NOT LIKE 'sqlite_%' ORDER BY name").Rows()
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []schemaObject
	for rows.Next() {
		var o schemaObject
		if err := rows.Scan(&o.name, &o.sql); err != nil {
			return nil, err
		}
		out = append(out, o)
	}
	return out, rows.Err()
}

func quoteIdent(s string) string {
	return `"` + strings.ReplaceAll(s, `"`, `""`) + `"`
}
