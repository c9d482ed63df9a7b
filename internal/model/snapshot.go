package model

type BaseSnapshot struct {
	Tag                 string `json:"tag"`
	Title               string `json:"title"`
	Description         string `json:"description"`
	BackupKind          string `json:"backup_kind"`
	SourcePath          string `json:"source_path"`
	DestinationPath     string `json:"destination_path"`
	ExecutablePath      string `json:"executable_path"`
	KeepCopies          int    `json:"keep_copies"`
	CloudKind           string `json:"cloud_kind"`
	CloudKeepCopies     int    `json:"cloud_keep_copies"`
	StopServices        string `json:"stop_services"`
	Disabled            bool   `json:"disabled"`
	RequiresDesigner    bool   `json:"requires_designer"`
	UsesCloud           bool   `json:"uses_cloud"`
	CloudTokenKey       string `json:"cloud_token_key"`
	DesignerLoginKey    string `json:"designer_login_key"`
	DesignerPasswordKey string `json:"designer_password_key"`
}
