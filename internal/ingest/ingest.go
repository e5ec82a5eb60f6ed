package ingest

import (
	"context"
	"database/sql"
	"fmt"
	"io"

	"poi-cluster/internal/catalog"
	"poi-cluster/internal/logger"
)

// BatchSize 每批提交的行数
const BatchSize = 5000

const insertPlace = "INSERT INTO _places(lat, lon, name, country, phone, source) VALUES($1,$2,$3,$4,$5,$6)"

// 文档注释：解析数据集并批量写入 _places
// 背景：5000 行为一批提交，降低锁持有与 WAL 压力；replace 为 true 时先删除同一 source 的旧数据（同一事务）。
// 异常：数据库错误直接返回，已提交的批次保留；格式错误行计入 Report 不中断。
func ImportToDB(ctx context.Context, db *sql.DB, r io.Reader, source string, replace bool) (catalog.Report, error) {
	logger.L().Info("ingest_start", "source", source, "replace", replace)
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return catalog.NewReport(), err
	}
	defer func() { _ = tx.Rollback() }()
	if replace {
		if _, err := tx.ExecContext(ctx, "DELETE FROM _places WHERE source=$1", source); err != nil {
			return catalog.NewReport(), fmt.Errorf("clear source %q: %w", source, err)
		}
	}
	stmt, err := tx.PrepareContext(ctx, insertPlace)
	if err != nil {
		return catalog.NewReport(), err
	}

	var (
		count  int
		insErr error
		ranges = catalog.NewReport()
	)
	rep, err := Parse(r, func(rec catalog.Record) {
		if insErr != nil {
			return
		}
		if _, insErr = stmt.ExecContext(ctx, rec.Lat, rec.Lon, rec.Place.Name, rec.Place.Country, rec.Place.Phone, source); insErr != nil {
			return
		}
		ranges.Observe(rec)
		count++
		if count%BatchSize == 0 {
			logger.L().Info("ingest_progress", "count", count)
			_ = stmt.Close()
			if insErr = tx.Commit(); insErr != nil {
				return
			}
			if tx, insErr = db.BeginTx(ctx, nil); insErr != nil {
				return
			}
			stmt, insErr = tx.PrepareContext(ctx, insertPlace)
		}
	})
	if insErr != nil {
		return rep, insErr
	}
	if err != nil {
		return rep, err
	}
	_ = stmt.Close()
	if err := tx.Commit(); err != nil {
		return rep, err
	}
	rep.Imported = count
	rep.MinLat, rep.MaxLat, rep.MinLon, rep.MaxLon = ranges.MinLat, ranges.MaxLat, ranges.MinLon, ranges.MaxLon
	rep.ClearEmptyRange()
	logger.L().Info("ingest_done", "count", count, "malformed", rep.Malformed)
	return rep, nil
}

// PlaceStore 由 store.Store 实现
type PlaceStore interface {
	CountPlaces(ctx context.Context) (int64, error)
	DB() *sql.DB
}

// EnsureInitialized：地点表为空时从数据集文件导入一次
// 约束：计数失败时直接返回错误，不做导入，避免把已有数据再导入一份
func EnsureInitialized(ctx context.Context, st PlaceStore, path string) error {
	c, err := st.CountPlaces(ctx)
	if err != nil {
		return err
	}
	if c > 0 {
		logger.L().Debug("ingest_skip_nonempty", "count", c)
		return nil
	}
	rc, err := Open(path)
	if err != nil {
		return err
	}
	defer rc.Close()
	_, err = ImportToDB(ctx, st.DB(), rc, path, false)
	return err
}
