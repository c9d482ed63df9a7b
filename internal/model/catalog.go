package model

const (
	BackupKindDesigner = "DT"
	BackupKindFileCopy = "1CD"

	CloudKindNone       = "None"
	CloudKindYandexDisk = "Yandex.Disk"
)

type AfterBackupAction int

const (
	AfterBackupShutdown AfterBackupAction = 1
	AfterBackupRestart  AfterBackupAction = 2
	AfterBackupNothing  AfterBackupAction = 3
)

// Catalogs are built once and never mutated. Callers must not modify the
// returned slices.
var (
	BackupKinds = []Option[string]{
		{Value: BackupKindDesigner, Label: "Designer dump (.dt)"},
		{Value: BackupKindFileCopy, Label: "Copy of the .1CD file"},
	}

	CloudKinds = []Option[string]{
		{Value: CloudKindNone, Label: "Do not use cloud storage"},
		{Value: CloudKindYandexDisk, Label: "Yandex.Disk"},
	}

	AfterBackupActions = []Option[AfterBackupAction]{
		{Value: AfterBackupShutdown, Label: "Shut down after backup"},
		{Value: AfterBackupRestart, Label: "Restart computer"},
		{Value: AfterBackupNothing, Label: "Do nothing"},
	}
)
