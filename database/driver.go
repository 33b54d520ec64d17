package database

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"fmt"
	"strings"
)

type sqliteDriver struct {
	name string
	dsn  func(path string, opts Options) string
}

// drivers maps the configured driver key to a registered database/sql driver.
// The pure-Go driver registers itself as "sqlite" through glebarez/sqlite.
var drivers = map[string]sqliteDriver{
	"glebarez": {name: "sqlite", dsn: buildGlebarezDSN},
}

func lookupDriver(key string) (sqliteDriver, bool) {
	key = strings.ToLower(strings.TrimSpace(key))
	if key == "" {
		key = "glebarez"
	}
	d, ok := drivers[key]
	return d, ok
}

// Drivers lists the driver keys available in this build.
func Drivers() []string {
	out := make([]string, 0, len(drivers))
	for k := range drivers {
		out = append(out, k)
	}
	return out
}

// hookConnector calls onConnect for every new connection before handing it
// to the pool.
type hookConnector struct {
	driver.Connector
	onConnect func(context.Context, driver.Conn) error
}

func (c *hookConnector) Connect(ctx context.Context) (driver.Conn, error) {
	conn, err := c.Connector.Connect(ctx)
	if err != nil {
		return nil, err
	}
	if err := c.onConnect(ctx, conn); err != nil {
		conn.Close() //nolint:errcheck // connection is discarded
		return nil, err
	}
	return conn, nil
}

type dsnConnector struct {
	dsn string
	drv driver.Driver
}

func (c dsnConnector) Connect(context.Context) (driver.Conn, error) { return c.drv.Open(c.dsn) }
func (c dsnConnector) Driver() driver.Driver                        { return c.drv }

func newConnector(driverName, dsn string, onConnect func(context.Context, driver.Conn) error) (driver.Connector, error) {
	// sql.Open does not connect; it only resolves the registered driver.
	opener, err := sql.Open(driverName, dsn)
	if err != nil {
		return nil, fmt.Errorf("resolving driver %s: %w", driverName, err)
	}
	drv := opener.Driver()
	opener.Close() //nolint:errcheck // never connected

	var base driver.Connector = dsnConnector{dsn: dsn, drv: drv}
	if dc, ok := drv.(driver.DriverContext); ok {
		if base, err = dc.OpenConnector(dsn); err != nil {
			return nil, fmt.Errorf("opening connector: %w", err)
		}
	}
	return &hookConnector{Connector: base, onConnect: onConnect}, nil
}

// execOnConn runs a statement directly on a driver connection.
func execOnConn(ctx context.Context, conn driver.Conn, stmt string) error {
	if ex, ok := conn.(driver.ExecerContext); ok {
		_, err := ex.ExecContext(ctx, stmt, nil)
		return err
	}
	st, err := conn.Prepare(stmt)
	if err != nil {
		return err
	}
	defer st.Close()
	_, err = st.Exec(nil) //nolint:staticcheck // fallback for drivers without ExecerContext
	return err
}
