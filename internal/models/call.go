package models

import "time"

// SourceSystem tags every row written by this service
const SourceSystem = "clari"

// Account types derived from CRM data
const (
	AccountTypeCustomer = "Customer"
	AccountTypeProspect = "Prospect"
	AccountTypeUnknown  = "Unknown"
)

// CallRecord represents one row in the calls table
type CallRecord struct {
	CallID string `json:"call_id"`

	// CRM linkage
	AccountID         string   `json:"account_id"`
	OpportunityID     string   `json:"opp_id_sfdc"`
	ContactIDs        string   `json:"contact_ids"`
	ContactTitle      string   `json:"contact_title"`
	DealStageBefore   string   `json:"deal_stage_before"`
	DealStageAfter    string   `json:"deal_stage_after"`
	DealStageCurrent  string   `json:"deal_stage_current"`
	FirstMeetingSrc   string   `json:"first_meeting_source"`
	MarketingSource   string   `json:"marketing_source"`
	CampaignSource    string   `json:"opportunity_primary_campaign_source"`
	OpportunityType   string   `json:"opportunity_type"`
	OpportunityAmount *float64 `json:"opportunity_amount"`
	ContractedARR     *float64 `json:"opportunity_contracted_arr"`

	// Descriptive
	CustomerProspectName string `json:"customer_prospect_name"`
	AccountType          string `json:"account_type"`
	AccountIndustry      string `json:"account_industry"`
	AccountAnnualRevenue *int64 `json:"account_annual_revenue"`

	// Metrics
	DurationSeconds       int     `json:"duration_seconds"`
	TalkListenRatio       float64 `json:"talk_listen_ratio"`
	LongestMonologue      float64 `json:"longest_monologue"`
	InteractivityScore    float64 `json:"interactivity_score"`
	EngagingQuestionCount int     `json:"engaging_question_count"`

	// Narrative
	FullSummary     string `json:"full_summary"`
	KeyTakeaways    string `json:"key_takeaways"`
	TopicsDiscussed string `json:"topics_discussed"`
	KeyActionItems  string `json:"key_action_items"`
	Transcript      string `json:"transcript"`

	// Dates
	CloseDate       *time.Time `json:"close_date"`
	CreatedDate     *time.Time `json:"created_date"`
	CallDatetimeGMT *time.Time `json:"call_datetime_gmt"`
	OpportunityAge  *int       `json:"opportunity_age"`

	// Call metadata, populated only by the comprehensive field set
	Title             string `json:"title,omitempty"`
	Status            string `json:"status,omitempty"`
	CallType          string `json:"call_type,omitempty"`
	Disposition       string `json:"disposition,omitempty"`
	AudioURL          string `json:"audio_url,omitempty"`
	VideoURL          string `json:"video_url,omitempty"`
	CallReviewPageURL string `json:"call_review_page_url,omitempty"`
	CRMSource         string `json:"crm_source,omitempty"`
	RawData           string `json:"raw_data,omitempty"`

	SourceSystem string `json:"source_system"`
}

// TopicDiscussed is one element of the serialized topics_discussed column
type TopicDiscussed struct {
	Name    string `json:"name"`
	Summary string `json:"summary"`
}

// ActionItem is one element of the serialized key_action_items column
type ActionItem struct {
	ActionItem string `json:"action_item"`
	Owner      string `json:"owner"`
}
