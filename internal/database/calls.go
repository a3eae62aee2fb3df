package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"clarisync/internal/models"
)

// ErrNotFound is returned when a call_id has no row
var ErrNotFound = errors.New("not found")

// callColumns lists every writable calls column except call_id, in the order
// callValues returns them.
var callColumns = []string{
	"account_id",
	"opp_id_sfdc",
	"contact_ids",
	"contact_title",
	"deal_stage_before",
	"deal_stage_after",
	"deal_stage_current",
	"first_meeting_source",
	"marketing_source",
	"opportunity_primary_campaign_source",
	"opportunity_type",
	"opportunity_amount",
	"opportunity_contracted_arr",
	"customer_prospect_name",
	"account_type",
	"account_industry",
	"account_annual_revenue",
	"duration_seconds",
	"talk_listen_ratio",
	"longest_monologue",
	"interactivity_score",
	"engaging_question_count",
	"full_summary",
	"key_takeaways",
	"topics_discussed",
	"key_action_items",
	"transcript",
	"close_date",
	"created_date",
	"call_datetime_gmt",
	"opportunity_age",
	"title",
	"status",
	"call_type",
	"disposition",
	"audio_url",
	"video_url",
	"call_review_page_url",
	"crm_source",
	"raw_data",
	"source_system",
}

func callValues(r *models.CallRecord) []interface{} {
	return []interface{}{
		r.AccountID,
		r.OpportunityID,
		r.ContactIDs,
		r.ContactTitle,
		r.DealStageBefore,
		r.DealStageAfter,
		r.DealStageCurrent,
		r.FirstMeetingSrc,
		r.MarketingSource,
		r.CampaignSource,
		r.OpportunityType,
		r.OpportunityAmount,
		r.ContractedARR,
		r.CustomerProspectName,
		r.AccountType,
		r.AccountIndustry,
		r.AccountAnnualRevenue,
		r.DurationSeconds,
		r.TalkListenRatio,
		r.LongestMonologue,
		r.InteractivityScore,
		r.EngagingQuestionCount,
		r.FullSummary,
		r.KeyTakeaways,
		r.TopicsDiscussed,
		r.KeyActionItems,
		r.Transcript,
		r.CloseDate,
		r.CreatedDate,
		r.CallDatetimeGMT,
		r.OpportunityAge,
		r.Title,
		r.Status,
		r.CallType,
		r.Disposition,
		r.AudioURL,
		r.VideoURL,
		r.CallReviewPageURL,
		r.CRMSource,
		r.RawData,
		r.SourceSystem,
	}
}

// callScanTargets returns pointers matching "call_id, " + callColumns
func callScanTargets(r *models.CallRecord) []interface{} {
	return []interface{}{
		&r.CallID,
		&r.AccountID,
		&r.OpportunityID,
		&r.ContactIDs,
		&r.ContactTitle,
		&r.DealStageBefore,
		&r.DealStageAfter,
		&r.DealStageCurrent,
		&r.FirstMeetingSrc,
		&r.MarketingSource,
		&r.CampaignSource,
		&r.OpportunityType,
		&r.OpportunityAmount,
		&r.ContractedARR,
		&r.CustomerProspectName,
		&r.AccountType,
		&r.AccountIndustry,
		&r.AccountAnnualRevenue,
		&r.DurationSeconds,
		&r.TalkListenRatio,
		&r.LongestMonologue,
		&r.InteractivityScore,
		&r.EngagingQuestionCount,
		&r.FullSummary,
		&r.KeyTakeaways,
		&r.TopicsDiscussed,
		&r.KeyActionItems,
		&r.Transcript,
		&r.CloseDate,
		&r.CreatedDate,
		&r.CallDatetimeGMT,
		&r.OpportunityAge,
		&r.Title,
		&r.Status,
		&r.CallType,
		&r.Disposition,
		&r.AudioURL,
		&r.VideoURL,
		&r.CallReviewPageURL,
		&r.CRMSource,
		&r.RawData,
		&r.SourceSystem,
	}
}

var (
	insertCallQuery = buildInsertCallQuery()
	updateCallQuery = buildUpdateCallQuery()
	selectCallQuery = "SELECT call_id, " + strings.Join(callColumns, ", ") + " FROM calls"
)

func buildInsertCallQuery() string {
	placeholders := make([]string, 0, len(callColumns)+1)
	for i := 1; i <= len(callColumns)+1; i++ {
		placeholders = append(placeholders, "$"+strconv.Itoa(i))
	}
	return fmt.Sprintf("INSERT INTO calls (call_id, %s) VALUES (%s)",
		strings.Join(callColumns, ", "), strings.Join(placeholders, ", "))
}

// buildUpdateCallQuery numbers placeholders in order of appearance; sqlite
// binds $N parameters by position, not by number
func buildUpdateCallQuery() string {
	sets := make([]string, 0, len(callColumns)+1)
	for i, col := range callColumns {
		sets = append(sets, fmt.Sprintf("%s = $%d", col, i+1))
	}
	sets = append(sets, fmt.Sprintf("updated_at = $%d", len(callColumns)+1))
	return fmt.Sprintf("UPDATE calls SET %s WHERE call_id = $%d", strings.Join(sets, ", "), len(callColumns)+2)
}

// ListCallIDs returns every stored call_id
func (db *DB) ListCallIDs(ctx context.Context) ([]string, error) {
	rows, err := db.Conn.QueryContext(ctx, `SELECT call_id FROM calls`)
	if err != nil {
		return nil, fmt.Errorf("failed to query call ids: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan call id: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// CallExists reports whether a row with callID is stored
func (db *DB) CallExists(ctx context.Context, callID string) (bool, error) {
	var one int
	err := db.Conn.QueryRowContext(ctx, `SELECT 1 FROM calls WHERE call_id = $1`, callID).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to check call %s: %w", callID, err)
	}
	return true, nil
}

// InsertCall writes a new calls row and returns the number of rows written
func (db *DB) InsertCall(ctx context.Context, record *models.CallRecord) (int64, error) {
	args := append([]interface{}{record.CallID}, callValues(record)...)
	result, err := db.Conn.ExecContext(ctx, insertCallQuery, args...)
	if err != nil {
		return 0, fmt.Errorf("failed to insert call %s: %w", record.CallID, err)
	}
	return result.RowsAffected()
}

// UpdateCall overwrites the calls row for record.CallID and returns the
// number of rows written
func (db *DB) UpdateCall(ctx context.Context, record *models.CallRecord) (int64, error) {
	args := append(callValues(record), time.Now().UTC(), record.CallID)
	result, err := db.Conn.ExecContext(ctx, updateCallQuery, args...)
	if err != nil {
		return 0, fmt.Errorf("failed to update call %s: %w", record.CallID, err)
	}
	return result.RowsAffected()
}

// GetCall returns the stored row for callID or ErrNotFound
func (db *DB) GetCall(ctx context.Context, callID string) (*models.CallRecord, error) {
	record := &models.CallRecord{}
	err := db.Conn.QueryRowContext(ctx, selectCallQuery+` WHERE call_id = $1`, callID).
		Scan(callScanTargets(record)...)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get call %s: %w", callID, err)
	}
	return record, nil
}

// RecentCalls returns up to limit rows, most recently written first
func (db *DB) RecentCalls(ctx context.Context, limit int) ([]models.CallRecord, error) {
	rows, err := db.Conn.QueryContext(ctx, selectCallQuery+` ORDER BY id DESC LIMIT $1`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query recent calls: %w", err)
	}
	defer rows.Close()

	calls := []models.CallRecord{}
	for rows.Next() {
		var record models.CallRecord
		if err := rows.Scan(callScanTargets(&record)...); err != nil {
			return nil, fmt.Errorf("failed to scan call: %w", err)
		}
		calls = append(calls, record)
	}
	return calls, rows.Err()
}

// CountCalls returns the number of stored calls
func (db *DB) CountCalls(ctx context.Context) (int, error) {
	var count int
	if err := db.Conn.QueryRowContext(ctx, `SELECT COUNT(*) FROM calls`).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count calls: %w", err)
	}
	return count, nil
}

// DeleteParticipants removes every participant row for callID
func (db *DB) DeleteParticipants(ctx context.Context, callID string) (int64, error) {
	result, err := db.Conn.ExecContext(ctx, `DELETE FROM call_participants WHERE call_id = $1`, callID)
	if err != nil {
		return 0, fmt.Errorf("failed to delete participants for %s: %w", callID, err)
	}
	return result.RowsAffected()
}

// InsertParticipants writes all participants in one transaction
func (db *DB) InsertParticipants(ctx context.Context, participants []models.ParticipantRecord) (int64, error) {
	if len(participants) == 0 {
		return 0, nil
	}

	tx, err := db.Conn.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `INSERT INTO call_participants
		(call_id, participant_name, participant_role, participant_type, company, email)
		VALUES ($1, $2, $3, $4, $5, $6)`)
	if err != nil {
		return 0, fmt.Errorf("failed to prepare participant insert: %w", err)
	}
	defer stmt.Close()

	var written int64
	for _, p := range participants {
		result, err := stmt.ExecContext(ctx, p.CallID, p.ParticipantName, p.ParticipantRole, p.ParticipantType, p.Company, p.Email)
		if err != nil {
			return 0, fmt.Errorf("failed to insert participant for %s: %w", p.CallID, err)
		}
		n, err := result.RowsAffected()
		if err != nil {
			return 0, err
		}
		written += n
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit participants: %w", err)
	}
	return written, nil
}

// ListParticipants returns the stored participant rows for callID
func (db *DB) ListParticipants(ctx context.Context, callID string) ([]models.ParticipantRecord, error) {
	rows, err := db.Conn.QueryContext(ctx, `SELECT call_id, participant_name, participant_role, participant_type, company, email
		FROM call_participants WHERE call_id = $1 ORDER BY id`, callID)
	if err != nil {
		return nil, fmt.Errorf("failed to query participants: %w", err)
	}
	defer rows.Close()

	participants := []models.ParticipantRecord{}
	for rows.Next() {
		var p models.ParticipantRecord
		var email sql.NullString
		if err := rows.Scan(&p.CallID, &p.ParticipantName, &p.ParticipantRole, &p.ParticipantType, &p.Company, &email); err != nil {
			return nil, fmt.Errorf("failed to scan participant: %w", err)
		}
		if email.Valid {
			p.Email = &email.String
		}
		participants = append(participants, p)
	}
	return participants, rows.Err()
}
