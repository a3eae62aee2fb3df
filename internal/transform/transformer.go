// Package transform maps raw call payloads from the call source onto the
// calls and call_participants row shapes. Everything here is pure: no I/O,
// and no input makes it fail.
package transform

import (
	"fmt"
	"strings"
	"time"

	"github.com/goccy/go-json"

	"clarisync/internal/models"
)

// FieldSet selects which columns TransformCall populates
type FieldSet string

const (
	// FieldSetStandard fills the CRM, metric and narrative columns
	FieldSetStandard FieldSet = "standard"
	// FieldSetComprehensive also fills call metadata columns and raw_data
	FieldSetComprehensive FieldSet = "comprehensive"
)

// ParseFieldSet validates a configured field set name
func ParseFieldSet(s string) (FieldSet, error) {
	switch FieldSet(s) {
	case FieldSetStandard, "":
		return FieldSetStandard, nil
	case FieldSetComprehensive:
		return FieldSetComprehensive, nil
	default:
		return "", fmt.Errorf("unknown field set %q", s)
	}
}

const unknownAccountName = "Unknown Account"

var closedDealStages = map[string]bool{
	"Closed Won":  true,
	"Closed Lost": true,
}

// ParticipantResolver resolves speaker ids within one call
type ParticipantResolver interface {
	ResolveName(callID, personID string) string
	ResolveEmail(callID, personID string) *string
	ResolveType(callID, personID, accountName string) string
	ResolveRole(callID, personID, accountName string) string
}

// Transformer converts raw call payloads into records
type Transformer struct {
	resolver ParticipantResolver
	fieldSet FieldSet
	now      func() time.Time
}

// Option customizes a Transformer
type Option func(*Transformer)

// WithClock sets the clock used for opportunity_age
func WithClock(now func() time.Time) Option {
	return func(t *Transformer) { t.now = now }
}

// WithFieldSet selects the field set
func WithFieldSet(fs FieldSet) Option {
	return func(t *Transformer) { t.fieldSet = fs }
}

// NewTransformer creates a transformer using resolver for participant fields
func NewTransformer(resolver ParticipantResolver, opts ...Option) *Transformer {
	t := &Transformer{
		resolver: resolver,
		fieldSet: FieldSetStandard,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// FieldSet returns the configured field set
func (t *Transformer) FieldSet() FieldSet {
	return t.fieldSet
}

// TransformCall maps a raw call payload to a CallRecord. Missing or
// malformed fields get their zero value or nil, never an error.
func (t *Transformer) TransformCall(callID string, raw map[string]any) models.CallRecord {
	crm := getMap(raw, "crm_info")
	summary := getMap(raw, "summary")

	record := models.CallRecord{
		CallID: callID,

		AccountID:         getString(crm, "account_id"),
		OpportunityID:     getString(crm, "deal_id"),
		ContactIDs:        joinList(crm["contact_ids"], ","),
		ContactTitle:      getString(crm, "contact_title"),
		DealStageBefore:   getString(raw, "deal_stage_before"),
		DealStageAfter:    getString(raw, "deal_stage_after"),
		DealStageCurrent:  getString(raw, "deal_stage_live"),
		FirstMeetingSrc:   getString(crm, "first_meeting_source"),
		MarketingSource:   getString(crm, "marketing_source"),
		CampaignSource:    getString(crm, "primary_campaign_source"),
		OpportunityType:   getString(crm, "deal_type"),
		OpportunityAmount: ParseAmount(crm["deal_amount"]),
		ContractedARR:     ParseAmount(crm["contracted_arr"]),

		CustomerProspectName: getString(crm, "account_name"),
		AccountType:          accountType(crm),
		AccountIndustry:      getString(crm, "account_industry"),
		AccountAnnualRevenue: ParseRevenue(crm["account_annual_revenue"]),

		DurationSeconds:       getInt(raw, "duration_seconds"),
		TalkListenRatio:       getFloat(raw, "talk_listen_ratio"),
		LongestMonologue:      getFloat(raw, "longest_monologue"),
		InteractivityScore:    getFloat(raw, "interactivity_score"),
		EngagingQuestionCount: getInt(raw, "engaging_question_count"),

		FullSummary:     getString(summary, "full_summary"),
		KeyTakeaways:    keyTakeaways(summary["key_takeaways"]),
		TopicsDiscussed: topicsJSON(summary["topics_discussed"]),
		KeyActionItems:  actionItemsJSON(summary["key_action_items"]),
		Transcript:      transcriptText(raw["transcript"]),

		CloseDate:       ParseDate(crm["deal_close_date"]),
		CreatedDate:     ParseDate(crm["deal_created_date"]),
		CallDatetimeGMT: ParseDatetime(raw["call_datetime"]),
		OpportunityAge:  OpportunityAge(crm["deal_created_date"], t.now()),

		SourceSystem: models.SourceSystem,
	}

	if record.AccountID == "" {
		record.AccountID = "unknown_" + callID
	}

	if t.fieldSet == FieldSetComprehensive {
		t.applyComprehensive(&record, raw, crm)
	}

	if record.CustomerProspectName == "" {
		record.CustomerProspectName = unknownAccountName
	}

	return record
}

// applyComprehensive fills call metadata and falls back to the nested
// metrics object and call-level names when the flat fields are absent.
func (t *Transformer) applyComprehensive(record *models.CallRecord, raw, crm map[string]any) {
	record.Title = getString(raw, "title")
	record.Status = getString(raw, "status")
	record.CallType = getString(raw, "type")
	record.Disposition = getString(raw, "disposition")
	record.AudioURL = getString(raw, "audio_url")
	record.VideoURL = getString(raw, "video_url")
	record.CallReviewPageURL = getString(raw, "call_review_page_url")
	record.CRMSource = getString(crm, "source_crm")

	if b, err := json.Marshal(raw); err == nil {
		record.RawData = string(b)
	}

	if metrics := getMap(raw, "metrics"); metrics != nil {
		if _, ok := raw["duration_seconds"]; !ok {
			record.DurationSeconds = getInt(metrics, "call_duration")
		}
		if _, ok := raw["talk_listen_ratio"]; !ok {
			record.TalkListenRatio = getFloat(metrics, "talk_listen_ratio")
		}
		if _, ok := raw["longest_monologue"]; !ok {
			record.LongestMonologue = getFloat(metrics, "longest_monologue_duration")
		}
		if _, ok := raw["engaging_question_count"]; !ok {
			record.EngagingQuestionCount = getInt(metrics, "engaging_questions")
		}
	}

	if record.DealStageBefore == "" {
		record.DealStageBefore = getString(raw, "deal_stage_before_call")
	}
	if record.CustomerProspectName == "" {
		record.CustomerProspectName = getString(raw, "account_name")
	}
	if record.CallDatetimeGMT == nil {
		record.CallDatetimeGMT = ParseDatetime(raw["time"])
	}
}

// ExtractParticipants returns one record per distinct speaker id in the
// transcript, in order of first appearance. Utterances without a speaker
// id are ignored.
func (t *Transformer) ExtractParticipants(callID string, raw map[string]any) []models.ParticipantRecord {
	accountName := getString(getMap(raw, "crm_info"), "account_name")

	personIDs := speakerIDs(raw["transcript"])
	participants := make([]models.ParticipantRecord, 0, len(personIDs))
	for _, personID := range personIDs {
		participants = append(participants, models.ParticipantRecord{
			CallID:          callID,
			PersonID:        personID,
			ParticipantName: t.resolver.ResolveName(callID, personID),
			ParticipantRole: t.resolver.ResolveRole(callID, personID, accountName),
			ParticipantType: t.resolver.ResolveType(callID, personID, accountName),
			Company:         accountName,
			Email:           t.resolver.ResolveEmail(callID, personID),
		})
	}
	return participants
}

func speakerIDs(transcript any) []string {
	utterances, ok := transcript.([]any)
	if !ok {
		return nil
	}

	seen := make(map[string]struct{})
	var ids []string
	for _, u := range utterances {
		utterance, ok := u.(map[string]any)
		if !ok {
			continue
		}
		id := stringify(utterance["personId"])
		if id == "" {
			continue
		}
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		ids = append(ids, id)
	}
	return ids
}

func accountType(crm map[string]any) string {
	if explicit := getString(crm, "account_type"); explicit != "" {
		return explicit
	}
	if closedDealStages[getString(crm, "deal_stage")] {
		return models.AccountTypeCustomer
	}
	if len(crm) == 0 {
		return models.AccountTypeUnknown
	}
	return models.AccountTypeProspect
}

func keyTakeaways(v any) string {
	items, ok := v.([]any)
	if !ok {
		return stringify(v)
	}
	lines := make([]string, 0, len(items))
	for _, item := range items {
		lines = append(lines, "- "+stringify(item))
	}
	return strings.Join(lines, "\n")
}

func topicsJSON(v any) string {
	items, _ := v.([]any)
	topics := make([]models.TopicDiscussed, 0, len(items))
	for _, item := range items {
		switch val := item.(type) {
		case map[string]any:
			topics = append(topics, models.TopicDiscussed{
				Name:    getString(val, "name"),
				Summary: getString(val, "summary"),
			})
		case string:
			topics = append(topics, models.TopicDiscussed{Name: val})
		}
	}
	return toJSON(topics)
}

func actionItemsJSON(v any) string {
	items, _ := v.([]any)
	actions := make([]models.ActionItem, 0, len(items))
	for _, item := range items {
		switch val := item.(type) {
		case map[string]any:
			actions = append(actions, models.ActionItem{
				ActionItem: getString(val, "action_item"),
				Owner:      getString(val, "owner_name"),
			})
		case string:
			actions = append(actions, models.ActionItem{ActionItem: val})
		}
	}
	return toJSON(actions)
}

// transcriptText keeps a string transcript as-is and serializes anything else
func transcriptText(v any) string {
	switch val := v.(type) {
	case nil:
		return ""
	case string:
		return val
	default:
		return toJSON(val)
	}
}

func toJSON(v any) string {
	b, err := json.Marshal(v)
	if err != nil {
		return ""
	}
	return string(b)
}
