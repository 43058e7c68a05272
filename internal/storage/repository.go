package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
)

var (
	// ErrNotConfigured indicates the storage pool was not initialised.
	ErrNotConfigured = errors.New("storage: pool not configured")
	// ErrNotFound indicates the referenced row does not exist.
	ErrNotFound = errors.New("storage: not found")
	// ErrInvalidPrice rejects negative prices at ingestion.
	ErrInvalidPrice = errors.New("storage: price must not be negative")
	// ErrInvalidRate rejects non-positive currency rates at ingestion.
	ErrInvalidRate = errors.New("storage: rate must be positive")
	// ErrDuplicateAlert rejects a second alert for the same (product, email).
	ErrDuplicateAlert = errors.New("storage: alert already exists for product and email")
	// ErrInvalidThreshold rejects non-positive alert thresholds.
	ErrInvalidThreshold = errors.New("storage: threshold price must be positive")
)

const (
	upsertShopSQL = `INSERT INTO shops (title, url)
    VALUES ($1, $2)
    ON CONFLICT (title) DO UPDATE
    SET url = EXCLUDED.url
    RETURNING id;`

	upsertProductSQL = `INSERT INTO products (external_id, title, description, shop_id)
    VALUES ($1, $2, $3, $4)
    ON CONFLICT (external_id) DO UPDATE
    SET title       = EXCLUDED.title,
        description = EXCLUDED.description,
        shop_id     = EXCLUDED.shop_id
    RETURNING id;`

	upsertPriceRecordSQL = `INSERT INTO price_records (product_id, date, price)
    VALUES ($1, $2, $3)
    ON CONFLICT (product_id, date) DO UPDATE
    SET price = EXCLUDED.price;`

	latestPriceSQL = `SELECT price
    FROM price_records
    WHERE product_id = $1
    ORDER BY date DESC
    LIMIT 1;`

	windowAverageSQL = `SELECT AVG(price)
    FROM price_records
    WHERE product_id = $1
      AND date >= $2
      AND date <= $3;`

	productSnapshotSQL = `SELECT
        p.id,
        p.external_id,
        p.title,
        p.description,
        p.shop_id,
        p.created_at,
        COALESCE(s.title, ''),
        COALESCE(s.url, ''),
        lp.price,
        wa.avg_price
    FROM products p
    LEFT JOIN shops s ON s.id = p.shop_id
    LEFT JOIN LATERAL (
        SELECT price FROM price_records
        WHERE product_id = p.id
        ORDER BY date DESC
        LIMIT 1
    ) lp ON true
    LEFT JOIN LATERAL (
        SELECT AVG(price) AS avg_price FROM price_records
        WHERE product_id = p.id
          AND date >= $1
          AND date <= $2
    ) wa ON true`

	listProductsSQL = productSnapshotSQL + `
    ORDER BY p.created_at DESC, p.id DESC;`

	getProductSQL = productSnapshotSQL + `
    WHERE p.id = $3
    LIMIT 1;`

	catalogPriceRangeSQL = `SELECT MIN(lp.price), MAX(lp.price)
    FROM products p
    JOIN LATERAL (
        SELECT price FROM price_records
        WHERE product_id = p.id
        ORDER BY date DESC
        LIMIT 1
    ) lp ON true;`

	shopDailyAveragesSQL = `SELECT s.id, s.title, AVG(pr.price)
    FROM shops s
    JOIN products p ON p.shop_id = s.id
    JOIN price_records pr ON pr.product_id = p.id AND pr.date = $1
    GROUP BY s.id, s.title
    ORDER BY s.title;`

	listRecentPriceRecordsSQL = `SELECT pr.id, pr.product_id, p.title, pr.date, pr.price, pr.created_at
    FROM price_records pr
    JOIN products p ON p.id = pr.product_id
    ORDER BY pr.date DESC, pr.id DESC
    LIMIT $1;`

	listPriceHistorySQL = `SELECT id, product_id, date, price, created_at
    FROM price_records
    WHERE product_id = $1
    ORDER BY date;`

	upsertRateSQL = `INSERT INTO currency_rates (code, rate, rate_date)
    VALUES ($1, $2, $3)
    ON CONFLICT (code, rate_date) DO UPDATE
    SET rate = EXCLUDED.rate;`

	latestRateSQL = `SELECT rate
    FROM currency_rates
    WHERE code = $1
    ORDER BY id DESC
    LIMIT 1;`

	listRecentRatesSQL = `SELECT id, code, rate, rate_date, created_at
    FROM currency_rates
    ORDER BY created_at DESC, id DESC
    LIMIT $1;`

	createAlertSQL = `INSERT INTO price_alerts (product_id, email, threshold_price)
    VALUES ($1, $2, $3)
    RETURNING id, created_at;`

	listDueAlertsSQL = `SELECT a.id, a.product_id, p.title, COALESCE(s.title, ''), COALESCE(s.url, ''), a.email, a.threshold_price
    FROM price_alerts a
    JOIN products p ON p.id = a.product_id
    LEFT JOIN shops s ON s.id = p.shop_id
    WHERE a.last_notified_date IS DISTINCT FROM $1
    ORDER BY a.id;`

	markNotifiedSQL = `UPDATE price_alerts
    SET last_notified_date = $2
    WHERE id = $1
      AND last_notified_date IS DISTINCT FROM $2;`

	tryAdvisoryLockSQL = `SELECT pg_try_advisory_lock($1);`
	advisoryUnlockSQL  = `SELECT pg_advisory_unlock($1);`
)

// ProductStore defines catalog persistence and snapshot queries.
type ProductStore interface {
	UpsertShop(ctx context.Context, title, url string) (int64, error)
	UpsertProduct(ctx context.Context, externalID int64, title, description string, shopID *int64) (int64, error)
	ListProducts(ctx context.Context, windowFrom, windowTo time.Time) ([]ProductSnapshot, error)
	GetProduct(ctx context.Context, id int64, windowFrom, windowTo time.Time) (ProductSnapshot, error)
}

// PriceStore defines operations on the per-product price time series.
type PriceStore interface {
	UpsertPriceRecord(ctx context.Context, productID int64, date time.Time, price decimal.Decimal) error
	LatestPrice(ctx context.Context, productID int64) (decimal.Decimal, bool, error)
	WindowAverage(ctx context.Context, productID int64, from, to time.Time) (decimal.Decimal, bool, error)
	CatalogPriceRange(ctx context.Context) (min, max decimal.Decimal, ok bool, err error)
	ShopDailyAverages(ctx context.Context, day time.Time) ([]ShopAverage, error)
	ListRecentPriceRecords(ctx context.Context, limit int) ([]PriceObservation, error)
	ListPriceHistory(ctx context.Context, productID int64) ([]PriceRecord, error)
}

// RateStore defines currency rate persistence. Latest is by insertion order.
type RateStore interface {
	UpsertRate(ctx context.Context, code, rateDate string, rate decimal.Decimal) error
	LatestRate(ctx context.Context, code string) (decimal.Decimal, bool, error)
	ListRecentRates(ctx context.Context, limit int) ([]CurrencyRate, error)
}

// AlertStore defines price alert persistence and evaluation queries.
type AlertStore interface {
	CreateAlert(ctx context.Context, productID int64, email string, threshold decimal.Decimal) (PriceAlert, error)
	ListDueAlerts(ctx context.Context, day time.Time) ([]DueAlert, error)
	MarkNotified(ctx context.Context, alertID int64, day time.Time) (bool, error)
}

// AdvisoryLocker exposes advisory lock helpers.
type AdvisoryLocker interface {
	TryAdvisoryLock(ctx context.Context, key int64) (unlock func(), acquired bool, err error)
}

// PriceObservation is a price record joined with its product title, for display.
type PriceObservation struct {
	ID           int64
	ProductID    int64
	ProductTitle string
	Date         time.Time
	Price        decimal.Decimal
	CreatedAt    time.Time
}

// Store aggregates access to all persisted collections.
type Store struct {
	pool *pgxpool.Pool
}

// NewStore wires a pgx pool into a Store.
func NewStore(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

// Close releases the underlying pool resources.
func (s *Store) Close() {
	if s == nil || s.pool == nil {
		return
	}
	s.pool.Close()
}

func (s *Store) getPool() (*pgxpool.Pool, error) {
	if s == nil || s.pool == nil {
		return nil, ErrNotConfigured
	}
	return s.pool, nil
}

// TryAdvisoryLock attempts to acquire a postgres advisory lock and returns a release func.
func (s *Store) TryAdvisoryLock(ctx context.Context, key int64) (func(), bool, error) {
	pool, err := s.getPool()
	if err != nil {
		return nil, false, err
	}

	conn, err := pool.Acquire(ctx)
	if err != nil {
		return nil, false, fmt.Errorf("acquire connection: %w", err)
	}

	var acquired bool
	if err := conn.QueryRow(ctx, tryAdvisoryLockSQL, key).Scan(&acquired); err != nil {
		conn.Release()
		return nil, false, fmt.Errorf("try advisory lock: %w", err)
	}
	if !acquired {
		conn.Release()
		return nil, false, nil
	}

	unlock := func() {
		ctxUnlock, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		// unlock is best effort; the session drop releases the lock anyway
		_, _ = conn.Exec(ctxUnlock, advisoryUnlockSQL, key)
		conn.Release()
	}
	return unlock, true, nil
}

// UpsertShop inserts or updates a shop keyed by title and returns its id.
func (s *Store) UpsertShop(ctx context.Context, title, url string) (int64, error) {
	pool, err := s.getPool()
	if err != nil {
		return 0, err
	}
	var id int64
	if scanErr := pool.QueryRow(ctx, upsertShopSQL, title, url).Scan(&id); scanErr != nil {
		return 0, fmt.Errorf("upsert shop: %w", scanErr)
	}
	return id, nil
}

// UpsertProduct inserts or updates a product keyed by external id and returns its id.
func (s *Store) UpsertProduct(ctx context.Context, externalID int64, title, description string, shopID *int64) (int64, error) {
	pool, err := s.getPool()
	if err != nil {
		return 0, err
	}
	var id int64
	if scanErr := pool.QueryRow(ctx, upsertProductSQL, externalID, title, description, shopID).Scan(&id); scanErr != nil {
		return 0, fmt.Errorf("upsert product: %w", scanErr)
	}
	return id, nil
}

// UpsertPriceRecord inserts or overwrites the single record for (product, date).
func (s *Store) UpsertPriceRecord(ctx context.Context, productID int64, date time.Time, price decimal.Decimal) error {
	if price.IsNegative() {
		return ErrInvalidPrice
	}
	pool, err := s.getPool()
	if err != nil {
		return err
	}
	if _, execErr := pool.Exec(ctx, upsertPriceRecordSQL, productID, DateOf(date), price.StringFixed(2)); execErr != nil {
		return fmt.Errorf("upsert price record: %w", execErr)
	}
	return nil
}

// LatestPrice returns the highest-date record for the product.
func (s *Store) LatestPrice(ctx context.Context, productID int64) (decimal.Decimal, bool, error) {
	pool, err := s.getPool()
	if err != nil {
		return decimal.Decimal{}, false, err
	}
	var priceStr string
	scanErr := pool.QueryRow(ctx, latestPriceSQL, productID).Scan(&priceStr)
	if errors.Is(scanErr, pgx.ErrNoRows) {
		return decimal.Decimal{}, false, nil
	}
	if scanErr != nil {
		return decimal.Decimal{}, false, fmt.Errorf("latest price: %w", scanErr)
	}
	price, convErr := decimal.NewFromString(priceStr)
	if convErr != nil {
		return decimal.Decimal{}, false, fmt.Errorf("parse latest price: %w", convErr)
	}
	return price, true, nil
}

// WindowAverage returns the mean price over the inclusive date window.
// Missing days are not interpolated; absent when no records fall in range.
func (s *Store) WindowAverage(ctx context.Context, productID int64, from, to time.Time) (decimal.Decimal, bool, error) {
	pool, err := s.getPool()
	if err != nil {
		return decimal.Decimal{}, false, err
	}
	var avgStr *string
	if scanErr := pool.QueryRow(ctx, windowAverageSQL, productID, DateOf(from), DateOf(to)).Scan(&avgStr); scanErr != nil {
		return decimal.Decimal{}, false, fmt.Errorf("window average: %w", scanErr)
	}
	if avgStr == nil {
		return decimal.Decimal{}, false, nil
	}
	avg, convErr := decimal.NewFromString(*avgStr)
	if convErr != nil {
		return decimal.Decimal{}, false, fmt.Errorf("parse window average: %w", convErr)
	}
	return avg, true, nil
}

// CatalogPriceRange returns min and max over every product's latest price.
func (s *Store) CatalogPriceRange(ctx context.Context) (decimal.Decimal, decimal.Decimal, bool, error) {
	pool, err := s.getPool()
	if err != nil {
		return decimal.Decimal{}, decimal.Decimal{}, false, err
	}
	var minStr, maxStr *string
	if scanErr := pool.QueryRow(ctx, catalogPriceRangeSQL).Scan(&minStr, &maxStr); scanErr != nil {
		return decimal.Decimal{}, decimal.Decimal{}, false, fmt.Errorf("catalog price range: %w", scanErr)
	}
	if minStr == nil || maxStr == nil {
		return decimal.Decimal{}, decimal.Decimal{}, false, nil
	}
	minPrice, convErr := decimal.NewFromString(*minStr)
	if convErr != nil {
		return decimal.Decimal{}, decimal.Decimal{}, false, fmt.Errorf("parse min price: %w", convErr)
	}
	maxPrice, convErr := decimal.NewFromString(*maxStr)
	if convErr != nil {
		return decimal.Decimal{}, decimal.Decimal{}, false, fmt.Errorf("parse max price: %w", convErr)
	}
	return minPrice, maxPrice, true, nil
}

// ShopDailyAverages returns the mean of each shop's records for the given day.
// Shops with no records that day are omitted.
func (s *Store) ShopDailyAverages(ctx context.Context, day time.Time) ([]ShopAverage, error) {
	pool, err := s.getPool()
	if err != nil {
		return nil, err
	}
	rows, queryErr := pool.Query(ctx, shopDailyAveragesSQL, DateOf(day))
	if queryErr != nil {
		return nil, fmt.Errorf("shop daily averages: %w", queryErr)
	}
	defer rows.Close()

	averages := make([]ShopAverage, 0)
	for rows.Next() {
		var avg ShopAverage
		var avgStr string
		if err := rows.Scan(&avg.ShopID, &avg.ShopTitle, &avgStr); err != nil {
			return nil, err
		}
		value, convErr := decimal.NewFromString(avgStr)
		if convErr != nil {
			return nil, fmt.Errorf("parse shop average: %w", convErr)
		}
		avg.AveragePrice = value
		averages = append(averages, avg)
	}
	if rows.Err() != nil {
		return nil, rows.Err()
	}
	return averages, nil
}

// ListRecentPriceRecords lists the most recent records across the catalog.
func (s *Store) ListRecentPriceRecords(ctx context.Context, limit int) ([]PriceObservation, error) {
	pool, err := s.getPool()
	if err != nil {
		return nil, err
	}
	rows, queryErr := pool.Query(ctx, listRecentPriceRecordsSQL, limit)
	if queryErr != nil {
		return nil, fmt.Errorf("list recent price records: %w", queryErr)
	}
	defer rows.Close()

	records := make([]PriceObservation, 0, limit)
	for rows.Next() {
		var rec PriceObservation
		var priceStr string
		if err := rows.Scan(&rec.ID, &rec.ProductID, &rec.ProductTitle, &rec.Date, &priceStr, &rec.CreatedAt); err != nil {
			return nil, err
		}
		price, convErr := decimal.NewFromString(priceStr)
		if convErr != nil {
			return nil, fmt.Errorf("parse price: %w", convErr)
		}
		rec.Price = price
		records = append(records, rec)
	}
	if rows.Err() != nil {
		return nil, rows.Err()
	}
	return records, nil
}

// ListPriceHistory returns a product's full time series ordered by date.
func (s *Store) ListPriceHistory(ctx context.Context, productID int64) ([]PriceRecord, error) {
	pool, err := s.getPool()
	if err != nil {
		return nil, err
	}
	rows, queryErr := pool.Query(ctx, listPriceHistorySQL, productID)
	if queryErr != nil {
		return nil, fmt.Errorf("list price history: %w", queryErr)
	}
	defer rows.Close()

	records := make([]PriceRecord, 0)
	for rows.Next() {
		var rec PriceRecord
		var priceStr string
		if err := rows.Scan(&rec.ID, &rec.ProductID, &rec.Date, &priceStr, &rec.CreatedAt); err != nil {
			return nil, err
		}
		price, convErr := decimal.NewFromString(priceStr)
		if convErr != nil {
			return nil, fmt.Errorf("parse price: %w", convErr)
		}
		rec.Price = price
		records = append(records, rec)
	}
	if rows.Err() != nil {
		return nil, rows.Err()
	}
	return records, nil
}

// ListProducts returns all products with latest and window-average prices.
// Ordered most-recently-created first.
func (s *Store) ListProducts(ctx context.Context, windowFrom, windowTo time.Time) ([]ProductSnapshot, error) {
	pool, err := s.getPool()
	if err != nil {
		return nil, err
	}
	rows, queryErr := pool.Query(ctx, listProductsSQL, DateOf(windowFrom), DateOf(windowTo))
	if queryErr != nil {
		return nil, fmt.Errorf("list products: %w", queryErr)
	}
	defer rows.Close()

	snapshots := make([]ProductSnapshot, 0)
	for rows.Next() {
		snap, scanErr := scanProductSnapshot(rows)
		if scanErr != nil {
			return nil, scanErr
		}
		snapshots = append(snapshots, snap)
	}
	if rows.Err() != nil {
		return nil, rows.Err()
	}
	return snapshots, nil
}

// GetProduct returns one product snapshot or ErrNotFound.
func (s *Store) GetProduct(ctx context.Context, id int64, windowFrom, windowTo time.Time) (ProductSnapshot, error) {
	pool, err := s.getPool()
	if err != nil {
		return ProductSnapshot{}, err
	}
	rows, queryErr := pool.Query(ctx, getProductSQL, DateOf(windowFrom), DateOf(windowTo), id)
	if queryErr != nil {
		return ProductSnapshot{}, fmt.Errorf("get product: %w", queryErr)
	}
	defer rows.Close()

	if !rows.Next() {
		if rows.Err() != nil {
			return ProductSnapshot{}, rows.Err()
		}
		return ProductSnapshot{}, ErrNotFound
	}
	snap, scanErr := scanProductSnapshot(rows)
	if scanErr != nil {
		return ProductSnapshot{}, scanErr
	}
	return snap, nil
}

// UpsertRate appends or updates a rate row keyed by (code, rate_date).
func (s *Store) UpsertRate(ctx context.Context, code, rateDate string, rate decimal.Decimal) error {
	if !rate.IsPositive() {
		return ErrInvalidRate
	}
	pool, err := s.getPool()
	if err != nil {
		return err
	}
	if _, execErr := pool.Exec(ctx, upsertRateSQL, code, rate.StringFixed(4), rateDate); execErr != nil {
		return fmt.Errorf("upsert rate: %w", execErr)
	}
	return nil
}

// LatestRate returns the most recently inserted rate for the code.
func (s *Store) LatestRate(ctx context.Context, code string) (decimal.Decimal, bool, error) {
	pool, err := s.getPool()
	if err != nil {
		return decimal.Decimal{}, false, err
	}
	var rateStr string
	scanErr := pool.QueryRow(ctx, latestRateSQL, code).Scan(&rateStr)
	if errors.Is(scanErr, pgx.ErrNoRows) {
		return decimal.Decimal{}, false, nil
	}
	if scanErr != nil {
		return decimal.Decimal{}, false, fmt.Errorf("latest rate: %w", scanErr)
	}
	rate, convErr := decimal.NewFromString(rateStr)
	if convErr != nil {
		return decimal.Decimal{}, false, fmt.Errorf("parse latest rate: %w", convErr)
	}
	return rate, true, nil
}

// ListRecentRates lists rate history, newest insertion first.
func (s *Store) ListRecentRates(ctx context.Context, limit int) ([]CurrencyRate, error) {
	pool, err := s.getPool()
	if err != nil {
		return nil, err
	}
	rows, queryErr := pool.Query(ctx, listRecentRatesSQL, limit)
	if queryErr != nil {
		return nil, fmt.Errorf("list recent rates: %w", queryErr)
	}
	defer rows.Close()

	rates := make([]CurrencyRate, 0, limit)
	for rows.Next() {
		var rate CurrencyRate
		var rateStr string
		if err := rows.Scan(&rate.ID, &rate.Code, &rateStr, &rate.RateDate, &rate.CreatedAt); err != nil {
			return nil, err
		}
		value, convErr := decimal.NewFromString(rateStr)
		if convErr != nil {
			return nil, fmt.Errorf("parse rate: %w", convErr)
		}
		rate.Rate = value
		rates = append(rates, rate)
	}
	if rows.Err() != nil {
		return nil, rows.Err()
	}
	return rates, nil
}

// CreateAlert registers a price alert subscription.
func (s *Store) CreateAlert(ctx context.Context, productID int64, email string, threshold decimal.Decimal) (PriceAlert, error) {
	if !threshold.IsPositive() {
		return PriceAlert{}, ErrInvalidThreshold
	}
	pool, err := s.getPool()
	if err != nil {
		return PriceAlert{}, err
	}

	alert := PriceAlert{
		ProductID:      productID,
		Email:          email,
		ThresholdPrice: threshold,
	}
	scanErr := pool.QueryRow(ctx, createAlertSQL, productID, email, threshold.StringFixed(2)).
		Scan(&alert.ID, &alert.CreatedAt)
	if scanErr != nil {
		var pgErr *pgconn.PgError
		if errors.As(scanErr, &pgErr) {
			switch pgErr.Code {
			case "23505":
				return PriceAlert{}, ErrDuplicateAlert
			case "23503":
				return PriceAlert{}, ErrNotFound
			}
		}
		return PriceAlert{}, fmt.Errorf("create alert: %w", scanErr)
	}
	return alert, nil
}

// ListDueAlerts returns alerts not yet notified on the given day.
func (s *Store) ListDueAlerts(ctx context.Context, day time.Time) ([]DueAlert, error) {
	pool, err := s.getPool()
	if err != nil {
		return nil, err
	}
	rows, queryErr := pool.Query(ctx, listDueAlertsSQL, DateOf(day))
	if queryErr != nil {
		return nil, fmt.Errorf("list due alerts: %w", queryErr)
	}
	defer rows.Close()

	alerts := make([]DueAlert, 0)
	for rows.Next() {
		var alert DueAlert
		var thresholdStr string
		if err := rows.Scan(
			&alert.ID,
			&alert.ProductID,
			&alert.ProductTitle,
			&alert.ShopTitle,
			&alert.ShopURL,
			&alert.Email,
			&thresholdStr,
		); err != nil {
			return nil, err
		}
		threshold, convErr := decimal.NewFromString(thresholdStr)
		if convErr != nil {
			return nil, fmt.Errorf("parse threshold: %w", convErr)
		}
		alert.ThresholdPrice = threshold
		alerts = append(alerts, alert)
	}
	if rows.Err() != nil {
		return nil, rows.Err()
	}
	return alerts, nil
}

// MarkNotified records a delivery for the day. The WHERE clause makes the
// write conditional, so concurrent evaluators cannot both claim the alert.
func (s *Store) MarkNotified(ctx context.Context, alertID int64, day time.Time) (bool, error) {
	pool, err := s.getPool()
	if err != nil {
		return false, err
	}
	cmdTag, execErr := pool.Exec(ctx, markNotifiedSQL, alertID, DateOf(day))
	if execErr != nil {
		return false, fmt.Errorf("mark notified: %w", execErr)
	}
	return cmdTag.RowsAffected() > 0, nil
}

func scanProductSnapshot(rows pgx.Rows) (ProductSnapshot, error) {
	var (
		snap      ProductSnapshot
		latestStr *string
		avgStr    *string
	)

	if err := rows.Scan(
		&snap.ID,
		&snap.ExternalID,
		&snap.Title,
		&snap.Description,
		&snap.ShopID,
		&snap.CreatedAt,
		&snap.ShopTitle,
		&snap.ShopURL,
		&latestStr,
		&avgStr,
	); err != nil {
		return ProductSnapshot{}, err
	}

	if latestStr != nil {
		latest, err := decimal.NewFromString(*latestStr)
		if err != nil {
			return ProductSnapshot{}, fmt.Errorf("parse latest price: %w", err)
		}
		snap.LatestPrice = &latest
	}
	if avgStr != nil {
		avg, err := decimal.NewFromString(*avgStr)
		if err != nil {
			return ProductSnapshot{}, fmt.Errorf("parse window average: %w", err)
		}
		snap.WindowAvg = &avg
	}

	return snap, nil
}

var (
	_ ProductStore   = (*Store)(nil)
	_ PriceStore     = (*Store)(nil)
	_ RateStore      = (*Store)(nil)
	_ AlertStore     = (*Store)(nil)
	_ AdvisoryLocker = (*Store)(nil)
)
