package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/exec"
	"os/signal"
	"syscall"

	"github.com/2beens/pagebox/internal"
	"github.com/2beens/pagebox/internal/config"
	"github.com/2beens/pagebox/internal/logging"
	"github.com/2beens/pagebox/pkg"

	log "github.com/sirupsen/logrus"
)

func main() {
	fmt.Println("starting ...")

	env := flag.String("env", "development", "environment [prod | production | dev | development]")
	configPath := flag.String("config", "./config.toml", "path for the TOML config file")
	flag.Parse()

	log.Warnf("---->> running in [%s] environment", *env)

	cfg, err := config.Load(*env, *configPath)
	if err != nil {
		panic(err)
	}

	sentryDSN := os.Getenv("SENTRY_DSN")
	logging.Setup(logging.LoggerSetupParams{
		LogFileName:      cfg.LogsPath,
		LogToStdout:      cfg.LogToStdout,
		LogLevel:         cfg.LogLevel,
		LogFormatJSON:    false,
		Environment:      cfg.Environment,
		SentryEnabled:    cfg.SentryEnabled,
		SentryDSN:        sentryDSN,
		SentryServerName: "pagebox-service",
	})

	log.Debugf("using port: %d", cfg.Port)
	log.Debugf("using server logs path: [%s]", cfg.LogsPath)

	versionInfo, err := tryGetLastCommitHash()
	if err != nil {
		log.Tracef("failed to get last commit hash / version info: %s", err)
	} else {
		log.Tracef("running version: %s", versionInfo)
	}

	tokenSigningKey := os.Getenv("PAGEBOX_TOKEN_SIGNING_KEY")
	if tokenSigningKey == "" {
		if cfg.IsProduction() {
			log.Fatalf("token signing key not set, use PAGEBOX_TOKEN_SIGNING_KEY env var to set it")
		}
		log.Errorf("token signing key not set, using a random one. use PAGEBOX_TOKEN_SIGNING_KEY env var to set it")
		tokenSigningKey, err = pkg.GenerateRandomString(32)
		if err != nil {
			log.Fatalf("generate random signing key: %s", err)
		}
	}

	registrationCode := os.Getenv("PAGEBOX_REGISTRATION_CODE")
	if registrationCode == "" {
		if cfg.IsProduction() {
			log.Fatalf("registration code not set, use PAGEBOX_REGISTRATION_CODE env var to set it")
		}
		log.Errorf("registration code not set, using a random one. use PAGEBOX_REGISTRATION_CODE env var to set it")
		registrationCode, err = pkg.GenerateRandomString(16)
		if err != nil {
			log.Fatalf("generate random registration code: %s", err)
		}
		log.Warnf("generated registration code: %s", registrationCode)
	}

	redisPassword := os.Getenv("PAGEBOX_REDIS_PASS")
	if redisPassword == "" {
		log.Errorf("redis password not set. use PAGEBOX_REDIS_PASS")
	}

	honeycombEnabled := os.Getenv("HONEYCOMB_ENABLED") == "true"
	if honeycombEnabled {
		if honeycombApiKey := os.Getenv("HONEYCOMB_API_KEY"); honeycombApiKey == "" {
			log.Warnln("HONEYCOMB_API_KEY env var not set")
		}
	} else {
		log.Debugln("honeycomb tracing disabled")
	}

	chOsInterrupt := make(chan os.Signal, 1)
	signal.Notify(chOsInterrupt, os.Interrupt, syscall.SIGTERM)

	ctx, cancel := context.WithCancel(context.Background())

	server, err := internal.NewServer(
		ctx,
		internal.NewServerParams{
			Config:                  cfg,
			TokenSigningKey:         []byte(tokenSigningKey),
			RegistrationCode:        registrationCode,
			RedisPassword:           redisPassword,
			VersionInfo:             versionInfo,
			HoneycombTracingEnabled: honeycombEnabled,
		},
	)
	if err != nil {
		log.Fatalf("new server: %s", err)
	}

	server.Serve(ctx, cfg.Host, cfg.Port)

	receivedSig := <-chOsInterrupt
	log.Warnf("signal [%s] received, killing everything ...", receivedSig)
	cancel()

	// go to sleep 🥱
	server.GracefulShutdown()
}

// tryGetLastCommitHash will try to get the last commit hash
// assumes that the built main executable is in project root
func tryGetLastCommitHash() (string, error) {
	cmd := exec.Command("/usr/bin/git", "rev-parse", "HEAD")
	stdout, err := cmd.Output()
	if err != nil {
		return "", err
	}
	return pkg.BytesToString(stdout), nil
}
