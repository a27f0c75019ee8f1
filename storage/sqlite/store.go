// 结果库: 每次调用一个 run id, 观测量, 峰值, 临界拟合, 交点和 τ_exp 都挂在 run 下
package sqlite

import (
	"context"
	"database/sql"
	"math"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"

	"isingstat/fss"
	"isingstat/infra/errorx"
	"isingstat/infra/errorx/errCode"
	"isingstat/infra/observe/log/staticLog"
	"isingstat/ising/analysis"
	"isingstat/ising/observables"
)

var schema = []string{
	`CREATE TABLE IF NOT EXISTS runs (
		id TEXT PRIMARY KEY,
		command TEXT NOT NULL,
		started_at INTEGER NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS observables (
		run_id TEXT NOT NULL,
		l INTEGER NOT NULL,
		beta REAL NOT NULL,
		observable TEXT NOT NULL,
		mean REAL,
		err REAL,
		k INTEGER NOT NULL,
		PRIMARY KEY (run_id, l, beta, observable)
	)`,
	`CREATE TABLE IF NOT EXISTS peaks (
		run_id TEXT NOT NULL,
		observable TEXT NOT NULL,
		l INTEGER NOT NULL,
		beta_pc REAL,
		beta_pc_err REAL,
		value_max REAL,
		value_max_err REAL,
		PRIMARY KEY (run_id, observable, l)
	)`,
	`CREATE TABLE IF NOT EXISTS critical (
		run_id TEXT NOT NULL,
		observable TEXT NOT NULL,
		beta_c REAL,
		beta_c_err REAL,
		nu REAL,
		nu_err REAL,
		gamma_over_nu REAL,
		gamma_over_nu_err REAL,
		PRIMARY KEY (run_id, observable)
	)`,
	`CREATE TABLE IF NOT EXISTS crossings (
		run_id TEXT NOT NULL,
		l1 INTEGER NOT NULL,
		l2 INTEGER NOT NULL,
		beta REAL,
		found INTEGER NOT NULL,
		PRIMARY KEY (run_id, l1, l2)
	)`,
	`CREATE TABLE IF NOT EXISTS relaxation (
		run_id TEXT NOT NULL,
		l INTEGER NOT NULL,
		tau_exp INTEGER,
		tau REAL,
		tau_err REAL,
		runs INTEGER NOT NULL,
		PRIMARY KEY (run_id, l)
	)`,
}

type Store struct {
	db *sqlx.DB
}

func Open(ctx context.Context, path string) (*Store, error) {
	db, err := sqlx.Open("sqlite", path)
	if err != nil {
		return nil, errorx.Wrapf(err, errCode.IO_ERROR, "open sqlite %s", path)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, errorx.Wrapf(err, errCode.IO_ERROR, "ping sqlite %s", path)
	}
	if _, err := db.ExecContext(ctx, "PRAGMA journal_mode = WAL;"); err != nil {
		staticLog.Log.Warnf("sqlite: failed to set WAL mode: %v", err)
	}
	for _, q := range schema {
		if _, err := db.ExecContext(ctx, q); err != nil {
			db.Close()
			return nil, errorx.Wrap(err, errCode.IO_ERROR, "create schema")
		}
	}
	return &Store{db: db}, nil
}

func (s *Store) Close() error { return s.db.Close() }

// NaN 存为 NULL
func nullable(v float64) sql.NullFloat64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return sql.NullFloat64{}
	}
	return sql.NullFloat64{Float64: v, Valid: true}
}

func value(v sql.NullFloat64) float64 {
	if !v.Valid {
		return math.NaN()
	}
	return v.Float64
}

func (s *Store) BeginRun(ctx context.Context, command string) (string, error) {
	id := uuid.New().String()
	_, err := s.db.ExecContext(ctx, `INSERT INTO runs (id, command, started_at) VALUES (?, ?, ?)`,
		id, command, time.Now().Unix())
	if err != nil {
		return "", errorx.Wrap(err, errCode.IO_ERROR, "insert run")
	}
	return id, nil
}

type ObservableRow struct {
	RunID      string          `db:"run_id"`
	L          int             `db:"l"`
	Beta       float64         `db:"beta"`
	Observable string          `db:"observable"`
	Mean       sql.NullFloat64 `db:"mean"`
	Err        sql.NullFloat64 `db:"err"`
	K          int             `db:"k"`
}

func (r ObservableRow) Values() (mean, err float64) { return value(r.Mean), value(r.Err) }

func (s *Store) withTx(ctx context.Context, fn func(tx *sqlx.Tx) error) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return errorx.Wrap(err, errCode.IO_ERROR, "begin tx")
	}
	if err := fn(tx); err != nil {
		_ = tx.Rollback()
		return err
	}
	if err := tx.Commit(); err != nil {
		return errorx.Wrap(err, errCode.IO_ERROR, "commit")
	}
	return nil
}

func (s *Store) SaveObservables(ctx context.Context, runID string, points []analysis.PointResult) error {
	cat := observables.All()
	return s.withTx(ctx, func(tx *sqlx.Tx) error {
		for _, p := range points {
			for i, o := range cat {
				row := ObservableRow{
					RunID: runID, L: p.L, Beta: p.Beta, Observable: o.Name,
					Mean: nullable(p.Values[i].Mean), Err: nullable(p.Values[i].Err), K: p.Ks[i],
				}
				_, err := tx.NamedExecContext(ctx, `INSERT OR REPLACE INTO observables
					(run_id, l, beta, observable, mean, err, k)
					VALUES (:run_id, :l, :beta, :observable, :mean, :err, :k)`, row)
				if err != nil {
					return errorx.Wrapf(err, errCode.IO_ERROR, "insert observable L=%d beta=%g %s", p.L, p.Beta, o.Name)
				}
			}
		}
		return nil
	})
}

func (s *Store) Observables(ctx context.Context, runID string) ([]ObservableRow, error) {
	var rows []ObservableRow
	err := s.db.SelectContext(ctx, &rows, `SELECT run_id, l, beta, observable, mean, err, k
		FROM observables WHERE run_id = ? ORDER BY l, beta, observable`, runID)
	if err != nil {
		return nil, errorx.Wrap(err, errCode.IO_ERROR, "select observables")
	}
	return rows, nil
}

// SaveFSS 峰值与两次标度拟合; 失败的拟合存为 NULL
func (s *Store) SaveFSS(ctx context.Context, runID, observable string, res fss.Result) error {
	return s.withTx(ctx, func(tx *sqlx.Tx) error {
		for _, p := range res.Peaks {
			_, err := tx.ExecContext(ctx, `INSERT OR REPLACE INTO peaks
				(run_id, observable, l, beta_pc, beta_pc_err, value_max, value_max_err) VALUES (?, ?, ?, ?, ?, ?, ?)`,
				runID, observable, p.L, nullable(p.Beta), nullable(p.BetaErr), nullable(p.Value), nullable(p.ValueErr))
			if err != nil {
				return errorx.Wrapf(err, errCode.IO_ERROR, "insert peak L=%d", p.L)
			}
		}
		bc, bcErr, nu, nuErr := math.NaN(), math.NaN(), math.NaN(), math.NaN()
		if res.Critical != nil {
			bc, bcErr, nu, nuErr = res.Critical.BetaC, res.Critical.BetaCErr, res.Critical.Nu, res.Critical.NuErr
		}
		gn, gnErr := math.NaN(), math.NaN()
		if res.Amplitude != nil {
			gn, gnErr = res.Amplitude.GammaOverNu, res.Amplitude.GammaOverNuErr
		}
		_, err := tx.ExecContext(ctx, `INSERT OR REPLACE INTO critical
			(run_id, observable, beta_c, beta_c_err, nu, nu_err, gamma_over_nu, gamma_over_nu_err) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
			runID, observable, nullable(bc), nullable(bcErr), nullable(nu), nullable(nuErr), nullable(gn), nullable(gnErr))
		if err != nil {
			return errorx.Wrap(err, errCode.IO_ERROR, "insert critical fit")
		}
		return nil
	})
}

func (s *Store) SaveCrossings(ctx context.Context, runID string, crossings []fss.Crossing) error {
	return s.withTx(ctx, func(tx *sqlx.Tx) error {
		for _, c := range crossings {
			_, err := tx.ExecContext(ctx, `INSERT OR REPLACE INTO crossings (run_id, l1, l2, beta, found) VALUES (?, ?, ?, ?, ?)`,
				runID, c.L1, c.L2, nullable(c.Beta), c.Found)
			if err != nil {
				return errorx.Wrapf(err, errCode.IO_ERROR, "insert crossing L=%d/%d", c.L1, c.L2)
			}
		}
		return nil
	})
}

func (s *Store) SaveRelaxation(ctx context.Context, runID string, taus []analysis.TauResult) error {
	return s.withTx(ctx, func(tx *sqlx.Tx) error {
		for _, r := range taus {
			var tauExp sql.NullInt64
			if r.Err == nil {
				tauExp = sql.NullInt64{Int64: int64(r.Fit.TauSteps), Valid: true}
			}
			_, err := tx.ExecContext(ctx, `INSERT OR REPLACE INTO relaxation (run_id, l, tau_exp, tau, tau_err, runs) VALUES (?, ?, ?, ?, ?, ?)`,
				runID, r.L, tauExp, nullable(nanIf(r.Err, r.Fit.Tau)), nullable(nanIf(r.Err, r.Fit.TauErr)), r.Runs)
			if err != nil {
				return errorx.Wrapf(err, errCode.IO_ERROR, "insert relaxation L=%d", r.L)
			}
		}
		return nil
	})
}

func nanIf(err error, v float64) float64 {
	if err != nil {
		return math.NaN()
	}
	return v
}

type CriticalRow struct {
	Observable     string          `db:"observable"`
	BetaC          sql.NullFloat64 `db:"beta_c"`
	BetaCErr       sql.NullFloat64 `db:"beta_c_err"`
	Nu             sql.NullFloat64 `db:"nu"`
	NuErr          sql.NullFloat64 `db:"nu_err"`
	GammaOverNu    sql.NullFloat64 `db:"gamma_over_nu"`
	GammaOverNuErr sql.NullFloat64 `db:"gamma_over_nu_err"`
}

func (s *Store) Critical(ctx context.Context, runID string) ([]CriticalRow, error) {
	var rows []CriticalRow
	err := s.db.SelectContext(ctx, &rows, `SELECT observable, beta_c, beta_c_err, nu, nu_err, gamma_over_nu, gamma_over_nu_err
		FROM critical WHERE run_id = ? ORDER BY observable`, runID)
	if err != nil {
		return nil, errorx.Wrap(err, errCode.IO_ERROR, "select critical")
	}
	return rows, nil
}
