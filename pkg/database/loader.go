package database

import (
	"context"
	"database/sql"
	"fmt"
	"net/url"
	"regexp"
	"strings"
	"time"

	"clv-segments/pkg/logger"
	"clv-segments/pkg/models"

	_ "github.com/go-sql-driver/mysql"
)

var tableNamePattern = regexp.MustCompile(`^[A-Za-z0-9_]+$`)

// Open accepts mariadb:// or mysql:// URLs as well as native driver DSNs.
func Open(dsn string) (*sql.DB, string, error) {
	mysqlDSN, err := toMySQLDSN(dsn)
	if err != nil {
		return nil, "", err
	}
	db, err := sql.Open("mysql", mysqlDSN)
	if err != nil {
		return nil, "", err
	}
	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(10)
	db.SetConnMaxLifetime(30 * time.Minute)
	return db, mysqlDSN, nil
}

func toMySQLDSN(dsn string) (string, error) {
	if strings.HasPrefix(dsn, "mariadb://") || strings.HasPrefix(dsn, "mysql://") {
		u, err := url.Parse(dsn)
		if err != nil {
			return "", fmt.Errorf("parse dsn: %w", err)
		}
		user := ""
		pass := ""
		if u.User != nil {
			user = u.User.Username()
			pw, _ := u.User.Password()
			pass = pw
		}
		host := u.Host
		db := strings.TrimPrefix(u.Path, "/")
		if user == "" || host == "" || db == "" {
			return "", fmt.Errorf("incomplete dsn (user/host/db)")
		}
		return fmt.Sprintf("%s:%s@tcp(%s)/%s?parseTime=true&loc=UTC&interpolateParams=true",
			user, pass, host, db), nil
	}
	return dsn, nil
}

// Window restricts loaded lines to InvoiceDate in [From, To). Zero bounds are open.
type Window struct {
	From time.Time
	To   time.Time
}

func buildQuery(tableName string, w Window) (string, []any, error) {
	if !tableNamePattern.MatchString(tableName) {
		return "", nil, fmt.Errorf("%w: table name %q", models.ErrInvalidInput, tableName)
	}
	const layout = "2006-01-02 15:04:05"

	var where []string
	var args []any
	if !w.From.IsZero() {
		where = append(where, "t.InvoiceDate >= ?")
		args = append(args, w.From.UTC().Format(layout))
	}
	if !w.To.IsZero() {
		where = append(where, "t.InvoiceDate < ?")
		args = append(args, w.To.UTC().Format(layout))
	}

	q := fmt.Sprintf(`
		SELECT
			t.InvoiceNo,
			COALESCE(t.StockCode, ''),
			COALESCE(t.Description, ''),
			t.Quantity,
			t.InvoiceDate,
			t.UnitPrice,
			COALESCE(t.CustomerID, ''),
			COALESCE(t.Country, '')
		FROM %s t`, tableName)
	if len(where) > 0 {
		q += "\n\t\tWHERE " + strings.Join(where, " AND ")
	}
	q += "\n\t\tORDER BY t.InvoiceDate"
	return q, args, nil
}

// LoadTransactions reads raw invoice lines from tableName. Cleaning is left to the caller.
func LoadTransactions(ctx context.Context, db *sql.DB, tableName string, w Window, log *logger.Logger) ([]models.Transaction, error) {
	q, args, err := buildQuery(tableName, w)
	if err != nil {
		return nil, err
	}
	log.Debug("loading transactions", "table", tableName, "from", w.From, "to", w.To)

	rows, err := db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var txs []models.Transaction
	for rows.Next() {
		var tx models.Transaction
		if err := rows.Scan(&tx.InvoiceNo, &tx.StockCode, &tx.Description, &tx.Quantity,
			&tx.InvoiceDate, &tx.UnitPrice, &tx.CustomerID, &tx.Country); err != nil {
			return nil, err
		}
		txs = append(txs, tx)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	log.Debug("transactions loaded", "table", tableName, "lines", len(txs))
	if len(txs) == 0 {
		return nil, models.ErrEmptyInput
	}
	return txs, nil
}
