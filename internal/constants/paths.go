package constants

// Directory and file names used by the engine. All live under the
// maestro home directory (~/.maestro by default, overridable in config).
const (
	// MaestroHome is the default home directory name, relative to the
	// user's home directory.
	MaestroHome = ".maestro"

	// GraphFileName is the persisted graph document for a project.
	GraphFileName = "tasks.json"

	// GraphLockFileName is the advisory lock file guarding document writes.
	GraphLockFileName = GraphFileName + ".lock"

	// DefinitionsDir holds workflow definition documents (YAML).
	DefinitionsDir = "workflows"

	// LogsDir holds rotated engine log files.
	LogsDir = "logs"

	// LogFileName is the engine log file.
	LogFileName = "maestro.log"
)
