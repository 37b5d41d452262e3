package db

import (
	"bytes"
	"embed"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"text/template"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database"
	"github.com/golang-migrate/migrate/v4/database/mysql"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/database/sqlite"
	"github.com/golang-migrate/migrate/v4/source/iofs"
)

//go:embed schema/*.sql
var embedFiles embed.FS

// MigrateData fills the column types that differ between dialects.
type MigrateData struct {
	Text      string
	Timestamp string
}

func migrateData(driver string) MigrateData {
	switch driver {
	case DriverPostgres:
		return MigrateData{Text: "TEXT", Timestamp: "TIMESTAMPTZ"}
	case DriverSQLite:
		return MigrateData{Text: "TEXT", Timestamp: "DATETIME"}
	default:
		return MigrateData{Text: "TEXT", Timestamp: "DATETIME(6)"}
	}
}

// Migrate runs the embedded schema migrations against the master connection.
func Migrate(db *DB) error {
	d, err := iofs.New(&templateFS{
		data: migrateData(db.Driver),
		FS:   embedFiles,
	}, "schema")
	if err != nil {
		return err
	}

	var driver database.Driver
	switch db.Driver {
	case DriverMySQL:
		driver, err = mysql.WithInstance(db.Master(), &mysql.Config{})
	case DriverPostgres:
		driver, err = postgres.WithInstance(db.Master(), &postgres.Config{})
	case DriverSQLite:
		driver, err = sqlite.WithInstance(db.Master(), &sqlite.Config{})
	default:
		err = fmt.Errorf("unsupported db driver %q", db.Driver)
	}

	if err != nil {
		return err
	}

	m, err := migrate.NewWithInstance("iofs", d, db.Driver, driver)
	if err != nil {
		return err
	}

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return err
	}

	return nil
}

type templateFile struct {
	io.ReadCloser
	info *fileInfoWithSize
}

func (t *templateFile) Stat() (fs.FileInfo, error) {
	return t.info, nil
}

type templateFS struct {
	data any
	embed.FS
}

func (t *templateFS) Open(name string) (fs.File, error) {
	file, err := t.FS.Open(name)
	if err != nil {
		return nil, err
	}

	defer file.Close()

	info, err := file.Stat()
	if err != nil {
		return nil, err
	}

	// directories are listed by iofs and must not go through the template
	if info.IsDir() {
		return t.FS.Open(name)
	}

	content, err := io.ReadAll(file)
	if err != nil {
		return nil, err
	}

	tmpl, err := template.New(info.Name()).Parse(string(content))
	if err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, t.data); err != nil {
		return nil, err
	}

	return &templateFile{
		ReadCloser: io.NopCloser(bytes.NewReader(buf.Bytes())),
		info:       &fileInfoWithSize{info, int64(buf.Len())},
	}, nil
}

type fileInfoWithSize struct {
	fs.FileInfo
	size int64
}

func (f *fileInfoWithSize) Size() int64 {
	return f.size
}
