package model

type seedBase struct {
	tag, title, description string
	backupKind, cloudKind   string
	source, destination     string
	executable              string
	keep, cloudKeep         int
	stopServices            string
	disabled                bool
}

var seedBases = []seedBase{
	{
		tag:          "main-prod",
		title:        "Main sales base",
		description:  "Production contour used by the sales team",
		backupKind:   BackupKindDesigner,
		cloudKind:    CloudKindYandexDisk,
		source:       `C:\1C\Bases\Main`,
		destination:  `D:\Backups\Main`,
		executable:   `C:\Program Files\1cv8\bin\1cv8.exe`,
		keep:         7,
		cloudKeep:    14,
		stopServices: "Apache2.4\r\nRagent",
	},
	{
		tag:         "analytics",
		title:       "Analytics",
		description: "Experimental copy for BI",
		backupKind:  BackupKindFileCopy,
		cloudKind:   CloudKindNone,
		source:      `C:\1C\Bases\Analytics\1Cv8.1CD`,
		destination: `D:\Backups\Analytics`,
		keep:        10,
		cloudKeep:   0,
	},
	{
		tag:          "demo-standby",
		title:        "Standby",
		description:  "Hot standby, brought up on demand",
		backupKind:   BackupKindDesigner,
		cloudKind:    CloudKindYandexDisk,
		source:       `C:\1C\Bases\Standby`,
		destination:  `E:\Backups\Standby`,
		executable:   `C:\Program Files\1cv8\bin\1cv8.exe`,
		keep:         3,
		cloudKeep:    6,
		stopServices: "Apache2.4",
		disabled:     true,
	},
}

// SeedBases builds the initial collection shown when the editor starts.
func SeedBases() []*JobConfig {
	bases := make([]*JobConfig, 0, len(seedBases))
	for _, s := range seedBases {
		backupKind, _ := FindOption(BackupKinds, s.backupKind)
		cloudKind, _ := FindOption(CloudKinds, s.cloudKind)

		j := NewJobConfig()
		for _, kv := range []struct {
			field string
			value any
		}{
			{FieldTag, s.tag},
			{FieldTitle, s.title},
			{FieldDescription, s.description},
			{FieldBackupKind, backupKind},
			{FieldSourcePath, s.source},
			{FieldDestinationPath, s.destination},
			{FieldExecutablePath, s.executable},
			{FieldKeepCopies, s.keep},
			{FieldCloudKind, cloudKind},
			{FieldCloudKeepCopies, s.cloudKeep},
			{FieldStopServices, s.stopServices},
			{FieldDisabled, s.disabled},
		} {
			if err := j.Set(kv.field, kv.value); err != nil {
				panic(err)
			}
		}
		bases = append(bases, j)
	}

	return bases
}
