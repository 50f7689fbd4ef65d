package server

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-playground/validator"
	"github.com/gorilla/mux"
	"github.com/spf13/viper"
	"github.com/sudarshan/carebuddy/server/auth"
	"github.com/sudarshan/carebuddy/server/auth/key"
	"github.com/sudarshan/carebuddy/server/gstorage"
	"github.com/sudarshan/carebuddy/server/logger"
	"github.com/sudarshan/carebuddy/server/mailer"
	"github.com/sudarshan/carebuddy/server/models"
	"github.com/sudarshan/carebuddy/server/remind"
	"github.com/sudarshan/carebuddy/server/situation"
	"github.com/sudarshan/carebuddy/server/sms"
	"github.com/sudarshan/carebuddy/server/sos"
	"github.com/sudarshan/carebuddy/server/work"
	"github.com/sudarshan/carebuddy/shared"
	"github.com/sudarshan/carebuddy/utils"
)

type RequestContextKey string

type DecodedJWT struct {
	Claims   *auth.CareBuddyTokenClaims
	ErrorMsg string
}

var (
	logg     = logger.NewLogger()
	validate = validator.New()

	authKeyPair *key.KeyPair

	emailClient *mailer.Client
	smsClient   *sms.Client

	workerPool          *work.WorkerPoolAdapter
	reminderScheduler   *remind.Scheduler
	emergencyDispatcher *sos.Dispatcher
	facilityResolver    situation.FacilityResolver
	hazardResolver      situation.HazardResolver

	serverConfig *shared.ServerConfig
	appConfigDir string
)

// Start brings up the full care-buddy server: encrypted sqlite storage, the
// background worker pool, the routine reminder scheduler and the HTTP API.
// It blocks until the process receives an interrupt, then shuts everything
// down in order.
func Start(config *viper.Viper, devMode bool) {
	var err error

	fatalOnError(RegisterValidators(validate))

	serverConfig, err = parseServerConfig(config)
	fatalOnError(err)

	appConfigDir = configDirectory(devMode)

	// Pull the last database snapshot from cloud storage before opening the
	// db, so a fresh instance resumes with existing data.
	if utils.IsTrue(serverConfig.Google.Storage.EnableSqliteBackupAndSync) {
		restoreSqliteDb(appConfigDir)
	}

	fatalOnError(models.AutoMigrate(serverConfig.Sqlite.PassPhrase, appConfigDir))

	authKeyPair, err = key.NewKeyPairFromRSAPrivateKeyPem(serverConfig.CareBuddy.PrivateKeyPem)
	fatalOnError(err)

	emailClient = mailer.NewClient(serverConfig.Smtp)
	smsClient = sms.NewClient(serverConfig.Twilio)
	facilityResolver = situation.NewFacilityResolver(serverConfig)
	hazardResolver = situation.NewHazardResolver(serverConfig)

	timeZone := serverConfig.CareBuddy.Cron.TimeZone
	emergencyDispatcher = sos.NewDispatcher(emailClient, smsClient, timeZone)

	workerPool = work.NewWorkerAdapter(timeZone)
	registerJobHandlers(workerPool)
	fatalOnError(workerPool.Start())
	enqueueJobs(workerPool)

	reminderScheduler, err = remind.NewScheduler(emailClient, timeZone, nil)
	fatalOnError(err)
	reminderScheduler.Start()

	httpServer := &http.Server{
		Addr:    fmt.Sprintf(":%v", serverConfig.CareBuddy.Listener.Port),
		Handler: router(),
	}
	go serve(httpServer)

	interruptChannel := make(chan os.Signal, 1)
	signal.Notify(interruptChannel, os.Interrupt, syscall.SIGTERM)
	<-interruptChannel

	logg.Info("Care-buddy server shutting down...")
	cleanup(httpServer, utils.IsTrue(serverConfig.Google.Storage.EnableSqliteBackupAndSync))
}

func router() *mux.Router {
	router := mux.NewRouter()
	router.Use(loggingMiddleware, initialContextMiddleware)

	router.HandleFunc("/health", healthCheck).Methods("GET")
	router.HandleFunc("/jwks", jwks).Methods("GET")
	router.HandleFunc("/signup", signUp).Methods("POST")
	router.HandleFunc("/login", logIn).Methods("POST")

	protectedRouter := router.PathPrefix("/").Subrouter()
	protectedRouter.Use(protectedRouteMiddleware)

	protectedRouter.HandleFunc("/users/{uid}", findUser).Methods("GET")
	protectedRouter.HandleFunc("/users/{uid}", updateUser).Methods("PUT")
	protectedRouter.HandleFunc("/users/{uid}", deleteUser).Methods("DELETE")

	protectedRouter.HandleFunc("/users/{uid}/contacts", findUserContacts).Methods("GET")
	protectedRouter.HandleFunc("/users/{uid}/contacts", replaceUserContacts).Methods("PUT")

	protectedRouter.HandleFunc("/users/{uid}/routines", findUserRoutines).Methods("GET")
	protectedRouter.HandleFunc("/users/{uid}/routines", createUserRoutine).Methods("POST")
	protectedRouter.HandleFunc("/users/{uid}/routines/{id}", updateUserRoutine).Methods("PUT")
	protectedRouter.HandleFunc("/users/{uid}/routines/{id}", deleteUserRoutine).Methods("DELETE")

	protectedRouter.HandleFunc("/sos/trigger", triggerEmergency).Methods("POST")
	protectedRouter.HandleFunc("/sos/nearby", nearbyFacilities).Methods("GET")
	protectedRouter.HandleFunc("/sos/disasters", activeHazard).Methods("GET")

	return router
}

func parseServerConfig(config *viper.Viper) (*shared.ServerConfig, error) {
	parsedConfig := &shared.ServerConfig{}

	if err := config.Unmarshal(parsedConfig); err != nil {
		return nil, fmt.Errorf("unable to parse server config: %v", err)
	}

	if err := validate.Struct(parsedConfig); err != nil {
		return nil, fmt.Errorf("invalid server config: %v", err)
	}

	return parsedConfig, nil
}

func restoreSqliteDb(configDir string) {
	storageConfig := serverConfig.Google.Storage

	gStorage, err := gstorage.NewGStorage(serverConfig.Google.ApplicationCredentials)
	if err != nil {
		logg.Warnf("Unable to create storage client for db restore: %v", err)
		return
	}

	dbDir, err := models.DbDirectory(configDir)
	if err != nil {
		logg.Warnf("Unable to resolve db directory for restore: %v", err)
		return
	}

	destination := fmt.Sprintf("%v/%v", dbDir, models.DB_NAME)
	if utils.FileExist(destination) {
		logg.Infof("Local db %v already present, skipping restore from cloud storage", destination)
		return
	}

	err = gStorage.DownloadFile(storageConfig.Bucket, storageConfig.Prefix, models.DB_NAME, destination)
	if err == gstorage.ErrObjectNotExist {
		logg.Info("No db backup found in cloud storage, starting fresh")
		return
	}
	if err != nil {
		logg.Warnf("Unable to restore db from cloud storage: %v", err)
	}
}

func cleanup(httpServer *http.Server, backupDb bool) {
	reminderScheduler.Stop()
	workerPool.Stop()

	if backupDb {
		if err := backupSqliteDb(nil); err != nil {
			logg.Errorf("Final db backup failed: %v", err)
		}
	}

	ctxShutDown, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(ctxShutDown); err != nil {
		logg.Fatalf("Care-buddy server shutdown failed: %+s", err)
	}

	logg.Info("Care-buddy server stopped properly")
}
