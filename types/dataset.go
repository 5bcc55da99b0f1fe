package types

// Dataset is a collection of feedback from one data source.
type Dataset struct {
	ID          int    `json:"id" yaml:"id" mapstructure:"id"`
	Name        string `json:"name" yaml:"name" mapstructure:"name"`
	ReportID    int    `json:"report_id" yaml:"report_id" mapstructure:"report_id"`
	Description string `json:"description" yaml:"description" mapstructure:"description"`
	DataSource  string `json:"data_source" yaml:"data_source" mapstructure:"data_source"`
}

// Report groups datasets for reporting.
type Report struct {
	ID          int       `json:"id" yaml:"id" mapstructure:"id"`
	Name        string    `json:"name" yaml:"name" mapstructure:"name"`
	Description string    `json:"description" yaml:"description" mapstructure:"description"`
	Language    string    `json:"language" yaml:"language" mapstructure:"language"`
	Created     string    `json:"created" yaml:"created" mapstructure:"created"`
	Datasets    []Dataset `json:"datasets" yaml:"datasets" mapstructure:"datasets"`
}

// Field describes one question or attribute collected in a dataset.
type Field struct {
	Key          string   `json:"key" yaml:"key" mapstructure:"key"`
	Label        string   `json:"label" yaml:"label" mapstructure:"label"`
	ShortLabel   string   `json:"short_label" yaml:"short_label" mapstructure:"short_label"`
	Type         string   `json:"type" yaml:"type" mapstructure:"type"`
	DatasetID    int      `json:"dataset_id" yaml:"dataset_id" mapstructure:"dataset_id"`
	ReportID     int      `json:"report_id" yaml:"report_id" mapstructure:"report_id"`
	AnswerValues []string `json:"answer_values" yaml:"answer_values" mapstructure:"answer_values"`
}

// FeedbackItem is a single answered field inside a Feedback entry.
type FeedbackItem struct {
	Key      string `json:"key" yaml:"key" mapstructure:"key"`
	Label    string `json:"label" yaml:"label" mapstructure:"label"`
	Value    any    `json:"value" yaml:"value" mapstructure:"value"`
	AnswerID string `json:"answer_id" yaml:"answer_id" mapstructure:"answer_id"`
}

// Feedback is one submitted feedback form.
type Feedback struct {
	ID        int            `json:"id" yaml:"id" mapstructure:"id"`
	Created   string         `json:"created" yaml:"created" mapstructure:"created"`
	DatasetID int            `json:"dataset_id" yaml:"dataset_id" mapstructure:"dataset_id"`
	ReportID  int            `json:"report_id" yaml:"report_id" mapstructure:"report_id"`
	Tags      []string       `json:"tags" yaml:"tags" mapstructure:"tags"`
	Items     []FeedbackItem `json:"items" yaml:"items" mapstructure:"items"`
}

// FeedbackPage is one page of a feedback listing.
type FeedbackPage struct {
	Meta     Meta
	Feedback []Feedback
}
