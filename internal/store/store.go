// 包 store: PostgreSQL 数据访问层，包含地点数据集读取与查询统计读写
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"math"

	"poi-cluster/internal/catalog"
	"poi-cluster/internal/logger"
	"poi-cluster/internal/utils"

	_ "github.com/lib/pq"
)

// Store: 数据库访问入口，持有连接池
type Store struct {
	db *sql.DB
}

func AttachDB(db *sql.DB) *Store { return &Store{db: db} }

// Open: 使用 DSN 打开数据库连接，连接池参数与 utils.OpenPostgres 一致
func Open(dsn string) (*Store, error) {
	db, err := utils.OpenPostgres(dsn)
	if err != nil {
		return nil, err
	}
	return &Store{db: db}, nil
}

func (s *Store) Close() error { return s.db.Close() }

func (s *Store) DB() *sql.DB { return s.db }

// CountPlaces: 地点表行数
func (s *Store) CountPlaces(ctx context.Context) (int64, error) {
	var c int64
	if err := s.db.QueryRowContext(ctx, "SELECT COUNT(1) FROM _places").Scan(&c); err != nil {
		return 0, fmt.Errorf("count places: %w", err)
	}
	return c, nil
}

// 文档注释：按主键顺序流式读取地点
// 背景：索引插入顺序决定同桶内的聚集顺序，固定 ORDER BY 保证多次重建结果一致。
// 返回：坐标非有限值的行计为 malformed 并跳过；迭代中的数据库错误直接返回。
func (s *Store) EachPlace(ctx context.Context, fn func(catalog.Record)) (malformed int, err error) {
	rows, err := s.db.QueryContext(ctx, "SELECT lat, lon, name, country, phone FROM _places ORDER BY id")
	if err != nil {
		return 0, fmt.Errorf("query places: %w", err)
	}
	defer rows.Close()
	n := 0
	for rows.Next() {
		var r catalog.Record
		if err := rows.Scan(&r.Lat, &r.Lon, &r.Place.Name, &r.Place.Country, &r.Place.Phone); err != nil {
			return malformed, fmt.Errorf("scan place: %w", err)
		}
		if math.IsNaN(r.Lat) || math.IsNaN(r.Lon) || math.IsInf(r.Lat, 0) || math.IsInf(r.Lon, 0) {
			malformed++
			continue
		}
		fn(r)
		n++
	}
	if err := rows.Err(); err != nil {
		return malformed, err
	}
	logger.L().Debug("db_places_loaded", "count", n, "malformed", malformed)
	return malformed, nil
}

// IncrStats: 每次聚合查询递增总计与当日计数；新会话同时递增会话计数
// 异常：返回第一个失败语句的错误，其余语句仍会执行
func (s *Store) IncrStats(ctx context.Context, newSession bool) error {
	stmts := []string{
		"UPDATE _poi_stats_total SET total_queries=total_queries+1 WHERE id=1",
		"INSERT INTO _poi_stats_daily(day, queries) VALUES(current_date, 1) ON CONFLICT (day) DO UPDATE SET queries=_poi_stats_daily.queries+1",
	}
	if newSession {
		stmts = append(stmts,
			"UPDATE _poi_stats_total SET total_sessions=total_sessions+1 WHERE id=1",
			"INSERT INTO _poi_stats_daily(day, sessions) VALUES(current_date, 1) ON CONFLICT (day) DO UPDATE SET sessions=_poi_stats_daily.sessions+1",
		)
	}
	var first error
	for _, q := range stmts {
		if _, err := s.db.ExecContext(ctx, q); err != nil && first == nil {
			first = fmt.Errorf("incr stats: %w", err)
		}
	}
	logger.L().Debug("stats_incr", "new_session", newSession, "err", first)
	return first
}

// Totals: 累计与当日的查询及会话次数
type Totals struct {
	Total         int64 `json:"total"`
	Today         int64 `json:"today"`
	TotalSessions int64 `json:"total_sessions"`
	TodaySessions int64 `json:"today_sessions"`
}

// GetTotals: 读取统计；行缺失时对应字段为 0，其余数据库错误直接返回
func (s *Store) GetTotals(ctx context.Context) (*Totals, error) {
	var t Totals
	err := s.db.QueryRowContext(ctx, "SELECT total_queries, total_sessions FROM _poi_stats_total WHERE id=1").Scan(&t.Total, &t.TotalSessions)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("read totals: %w", err)
	}
	err = s.db.QueryRowContext(ctx, "SELECT queries, sessions FROM _poi_stats_daily WHERE day=current_date").Scan(&t.Today, &t.TodaySessions)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("read daily stats: %w", err)
	}
	logger.L().Debug("stats_totals", "total", t.Total, "today", t.Today)
	return &t, nil
}
