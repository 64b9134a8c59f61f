package report

import (
	"database/sql"
	"fmt"
	"os"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/weberc2/fsck/pkg/types"
)

// PGReportStore keeps reports in the `fsck_reports` postgres table.
type PGReportStore sql.DB

// OpenEnv connects using the `PG_*` environment variables.
func OpenEnv() (*PGReportStore, error) {
	db, err := sql.Open(
		"postgres",
		fmt.Sprintf(
			"host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
			getEnv("PG_HOST", "localhost"),
			getEnv("PG_PORT", "5432"),
			getEnv("PG_USER", "postgres"),
			getEnv("PG_PASS", ""),
			getEnv("PG_DB_NAME", "postgres"),
			getEnv("PG_SSL_MODE", "disable"),
		),
	)
	if err != nil {
		return nil, fmt.Errorf("opening postgres database: %w", err)
	}

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("pinging postgres database: %w", err)
	}

	return (*PGReportStore)(db), nil
}

func getEnv(env, def string) string {
	x := os.Getenv(env)
	if x == "" {
		return def
	}
	return x
}

func (pgrs *PGReportStore) EnsureTable() error {
	if _, err := (*sql.DB)(pgrs).Exec(
		"CREATE TABLE IF NOT EXISTS fsck_reports (" +
			"run_id UUID NOT NULL PRIMARY KEY, " +
			"image VARCHAR(4096) NOT NULL, " +
			"mode VARCHAR(16) NOT NULL, " +
			"outcome VARCHAR(16) NOT NULL, " +
			"kinds VARCHAR(32)[] NOT NULL, " +
			"message TEXT NOT NULL, " +
			"relinked BIGINT[] NOT NULL, " +
			"started TIMESTAMPTZ NOT NULL, " +
			"finished TIMESTAMPTZ NOT NULL)",
	); err != nil {
		return fmt.Errorf("creating `fsck_reports` postgres table: %w", err)
	}
	return nil
}

func (pgrs *PGReportStore) DropTable() error {
	if _, err := (*sql.DB)(pgrs).Exec(
		"DROP TABLE IF EXISTS fsck_reports",
	); err != nil {
		return fmt.Errorf("dropping table `fsck_reports`: %w", err)
	}
	return nil
}

func (pgrs *PGReportStore) ResetTable() error {
	if err := pgrs.DropTable(); err != nil {
		return err
	}
	return pgrs.EnsureTable()
}

func (pgrs *PGReportStore) Put(r *Report) error {
	kinds := make([]string, len(r.Kinds))
	for i := range r.Kinds {
		kinds[i] = r.Kinds[i].String()
	}
	relinked := make([]int64, len(r.Relinked))
	for i := range r.Relinked {
		relinked[i] = int64(r.Relinked[i])
	}

	if _, err := (*sql.DB)(pgrs).Exec(
		"INSERT INTO fsck_reports "+
			"(run_id, image, mode, outcome, kinds, message, relinked, "+
			"started, finished) VALUES($1, $2, $3, $4, $5, $6, $7, $8, $9)",
		r.RunID.String(),
		r.Image,
		string(r.Mode),
		string(r.Outcome),
		pq.Array(kinds),
		r.Message,
		pq.Array(relinked),
		r.Started,
		r.Finished,
	); err != nil {
		return fmt.Errorf("inserting report into postgres: %w", err)
	}
	return nil
}

func (pgrs *PGReportStore) List(image string) ([]Report, error) {
	// we don't want to return a `nil` slice because that gets JSON-marshaled
	// to `null` instead of `[]`.
	reports := []Report{}

	rows, err := (*sql.DB)(pgrs).Query(
		"SELECT run_id, image, mode, outcome, kinds, message, relinked, "+
			"started, finished FROM fsck_reports WHERE image = $1 "+
			"ORDER BY started",
		image,
	)
	if err != nil {
		return nil, fmt.Errorf("querying reports from postgres: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			r        Report
			runID    string
			kinds    []string
			relinked []int64
		)
		if err := rows.Scan(
			&runID,
			&r.Image,
			&r.Mode,
			&r.Outcome,
			pq.Array(&kinds),
			&r.Message,
			pq.Array(&relinked),
			&r.Started,
			&r.Finished,
		); err != nil {
			return nil, fmt.Errorf("querying reports from postgres: %w", err)
		}
		if r.RunID, err = uuid.Parse(runID); err != nil {
			return nil, fmt.Errorf(
				"querying reports from postgres: parsing `run_id`: %w",
				err,
			)
		}
		for _, kind := range kinds {
			var k types.Kind
			if err := k.UnmarshalText([]byte(kind)); err != nil {
				return nil, fmt.Errorf(
					"querying reports from postgres: parsing `kinds`: %w",
					err,
				)
			}
			r.Kinds = append(r.Kinds, k)
		}
		for _, ino := range relinked {
			r.Relinked = append(r.Relinked, types.Ino(ino))
		}
		reports = append(reports, r)
	}

	return reports, rows.Err()
}
