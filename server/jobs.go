package server

import (
	"fmt"

	"github.com/sudarshan/carebuddy/server/gstorage"
	"github.com/sudarshan/carebuddy/server/models"
	"github.com/sudarshan/carebuddy/server/work"
	"github.com/sudarshan/carebuddy/utils"
)

// Cron schedule for clearing routine reminder flags, daily at midnight in
// the configured time zone.
const ROUTINE_FLAG_RESET_SCHEDULE = "0 0 * * *"

// backupSqliteDb pushes the sqlite db file to cloud storage.
func backupSqliteDb(map[string]interface{}) error {
	storageConfig := serverConfig.Google.Storage

	gStorage, err := gstorage.NewGStorage(serverConfig.Google.ApplicationCredentials)
	if err != nil {
		return err
	}

	dbDir, err := models.DbDirectory(appConfigDir)
	if err != nil {
		return err
	}

	return gStorage.UploadFile(storageConfig.Bucket, storageConfig.Prefix, fmt.Sprintf("%v/%v", dbDir, models.DB_NAME))
}

// resetRoutineFlags clears yesterday's reminder flags so every routine slot
// becomes eligible again for the new day.
func resetRoutineFlags(map[string]interface{}) error {
	return models.ResetDailyRoutineFlags()
}

func registerJobHandlers(workerPool *work.WorkerPoolAdapter) {
	workerPool.Register("backupSqliteDb", backupSqliteDb)
	workerPool.Register("resetRoutineFlags", resetRoutineFlags)
}

func enqueueJobs(workerPool *work.WorkerPoolAdapter) {
	workerPool.PeriodicallyPerform(ROUTINE_FLAG_RESET_SCHEDULE, work.JobParams{
		Name:    "resetRoutineFlags",
		Handler: "resetRoutineFlags",
		Args:    map[string]interface{}{},
	})

	if utils.IsTrue(serverConfig.Google.Storage.EnableSqliteBackupAndSync) {
		workerPool.PeriodicallyPerform(serverConfig.Google.Storage.SqliteBackupSchedule, work.JobParams{
			Name:    "backupSqliteDb",
			Handler: "backupSqliteDb",
			Args:    map[string]interface{}{},
		})
	}
}
