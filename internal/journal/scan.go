package journal

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"
)

type rowScanner interface {
	Scan(dest ...any) error
}

func scanBatch(scanner rowScanner) (*Batch, error) {
	var (
		batch       Batch
		dryRun      int
		dedup       int
		pauseReason sql.NullString
		createdRaw  string
		pausedRaw   sql.NullString
		resumedRaw  sql.NullString
		doneRaw     sql.NullString
	)

	err := scanner.Scan(
		&batch.ID, &batch.Name, &dryRun, &dedup,
		&batch.Total, &batch.Completed, &batch.Failed, &batch.Skipped,
		&pauseReason, &createdRaw, &pausedRaw, &resumedRaw, &doneRaw,
	)
	if err != nil {
		return nil, err
	}

	batch.DryRun = dryRun != 0
	batch.Dedup = dedup != 0
	batch.PauseReason = pauseReason.String
	if batch.CreatedAt, err = parseTime(createdRaw); err != nil {
		return nil, fmt.Errorf("failed to parse batch created_at: %w", err)
	}
	batch.PausedAt = parseNullTime(pausedRaw)
	batch.ResumedAt = parseNullTime(resumedRaw)
	batch.CompletedAt = parseNullTime(doneRaw)

	return &batch, nil
}

func scanTask(scanner rowScanner) (*Task, error) {
	var (
		task         Task
		sourceTitle  sql.NullString
		targetRef    sql.NullString
		targetTitle  sql.NullString
		videoIDsRaw  sql.NullString
		statusStr    string
		verdict      sql.NullString
		errorClass   sql.NullString
		errorMessage sql.NullString
		identity     sql.NullString
		createdRaw   string
		startedRaw   sql.NullString
		doneRaw      sql.NullString
	)

	err := scanner.Scan(
		&task.ID, &task.BatchID, &task.Seq,
		&task.SourceRef, &sourceTitle, &targetRef, &targetTitle, &videoIDsRaw,
		&statusStr, &verdict, &errorClass, &errorMessage,
		&task.RetryCount, &identity, &task.Units,
		&createdRaw, &startedRaw, &doneRaw,
	)
	if err != nil {
		return nil, err
	}

	task.SourceTitle = sourceTitle.String
	task.TargetRef = targetRef.String
	task.TargetTitle = targetTitle.String
	task.Status = Status(statusStr)
	task.Verdict = verdict.String
	task.ErrorClass = errorClass.String
	task.ErrorMessage = errorMessage.String
	task.Identity = identity.String

	if videoIDsRaw.Valid && videoIDsRaw.String != "" {
		if err := json.Unmarshal([]byte(videoIDsRaw.String), &task.VideoIDs); err != nil {
			return nil, fmt.Errorf("failed to decode task video ids: %w", err)
		}
	}
	if task.CreatedAt, err = parseTime(createdRaw); err != nil {
		return nil, fmt.Errorf("failed to parse task created_at: %w", err)
	}
	task.StartedAt = parseNullTime(startedRaw)
	task.CompletedAt = parseNullTime(doneRaw)

	return &task, nil
}

func encodeVideoIDs(ids []string) (sql.NullString, error) {
	if len(ids) == 0 {
		return sql.NullString{}, nil
	}
	data, err := json.Marshal(ids)
	if err != nil {
		return sql.NullString{}, fmt.Errorf("failed to encode video ids: %w", err)
	}
	return sql.NullString{String: string(data), Valid: true}, nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

func nullableString(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}

func nullableTime(t time.Time) sql.NullString {
	if t.IsZero() {
		return sql.NullString{}
	}
	return sql.NullString{String: formatTime(t), Valid: true}
}

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

func parseTime(raw string) (time.Time, error) {
	return time.Parse(time.RFC3339Nano, raw)
}

func parseNullTime(raw sql.NullString) time.Time {
	if !raw.Valid || raw.String == "" {
		return time.Time{}
	}
	t, err := parseTime(raw.String)
	if err != nil {
		return time.Time{}
	}
	return t
}
