package types

// Account represents the account owning the API keys.
type Account struct {
	Name          string          `json:"name" yaml:"name" mapstructure:"name"`
	Package       string          `json:"package" yaml:"package" mapstructure:"package"`
	EndDate       string          `json:"enddate" yaml:"enddate" mapstructure:"enddate"`
	NumberUsers   int             `json:"number_users" yaml:"number_users" mapstructure:"number_users"`
	NumberCharts  int             `json:"number_charts" yaml:"number_charts" mapstructure:"number_charts"`
	NumberForms   int             `json:"number_forms" yaml:"number_forms" mapstructure:"number_forms"`
	NumberReports int             `json:"number_reports" yaml:"number_reports" mapstructure:"number_reports"`
	Reports       []ReportSummary `json:"reports" yaml:"reports" mapstructure:"reports"`
}

// ReportSummary is the short report listing embedded in an Account.
type ReportSummary struct {
	ID       int    `json:"id" yaml:"id" mapstructure:"id"`
	Name     string `json:"name" yaml:"name" mapstructure:"name"`
	Language string `json:"language" yaml:"language" mapstructure:"language"`
}

// Deployment is a feedback form deployment.
type Deployment struct {
	Key  string `json:"key" yaml:"key" mapstructure:"key"`
	Name string `json:"name" yaml:"name" mapstructure:"name"`
}
