package common

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	logger "github.com/kthomas/go-logger"
)

const defaultListenAddr = "0.0.0.0:8080"
const defaultConnectorRetries = 3
const defaultConnectorTimeout = time.Second * 30

var (
	// Log is the configured logger
	Log *logger.Logger

	// ConsumeNATSStreamingSubscriptions is a flag the indicates if the bungee instance is running in API or consumer mode
	ConsumeNATSStreamingSubscriptions bool

	// NotificationsEnabled is a flag that indicates if view and merge notifications are published to NATS
	NotificationsEnabled bool

	// ListenAddr is the address the API listens on
	ListenAddr string

	// SignatureScheme is the signature scheme used to sign views and integrated views
	SignatureScheme string

	// PrivateKey is the optional hex-encoded private key for the configured signature scheme;
	// a fresh key is generated when nil
	PrivateKey *string

	// ConnectorRetries is the maximum number of retries the connector ledger state provider attempts
	ConnectorRetries uint64

	// ConnectorTimeout is the per-request timeout used by the connector ledger state provider
	ConnectorTimeout time.Duration
)

func init() {
	godotenv.Load()

	requireLogger()
	requireConfig()
}

func requireLogger() {
	lvl := os.Getenv("LOG_LEVEL")
	if lvl == "" {
		lvl = "INFO"
	}

	var endpoint *string
	if os.Getenv("SYSLOG_ENDPOINT") != "" {
		endpt := os.Getenv("SYSLOG_ENDPOINT")
		endpoint = &endpt
	}

	Log = logger.NewLogger("bungee", lvl, endpoint)
}

func requireConfig() {
	ConsumeNATSStreamingSubscriptions = strings.ToLower(os.Getenv("CONSUME_NATS_STREAMING_SUBSCRIPTIONS")) == "true"
	NotificationsEnabled = strings.ToLower(os.Getenv("BUNGEE_NOTIFICATIONS_ENABLED")) == "true"

	ListenAddr = os.Getenv("BUNGEE_LISTEN_ADDR")
	if ListenAddr == "" {
		ListenAddr = defaultListenAddr
	}

	SignatureScheme = strings.ToLower(os.Getenv("BUNGEE_SIGNATURE_SCHEME"))
	PrivateKey = StringOrNil(os.Getenv("BUNGEE_PRIVATE_KEY"))

	ConnectorRetries = defaultConnectorRetries
	if os.Getenv("BUNGEE_CONNECTOR_RETRIES") != "" {
		retries, err := strconv.ParseUint(os.Getenv("BUNGEE_CONNECTOR_RETRIES"), 10, 64)
		if err != nil {
			Log.Warningf("failed to parse BUNGEE_CONNECTOR_RETRIES; using default of %d; %s", defaultConnectorRetries, err.Error())
		} else {
			ConnectorRetries = retries
		}
	}

	ConnectorTimeout = defaultConnectorTimeout
	if os.Getenv("BUNGEE_CONNECTOR_TIMEOUT") != "" {
		timeout, err := time.ParseDuration(os.Getenv("BUNGEE_CONNECTOR_TIMEOUT"))
		if err != nil {
			Log.Warningf("failed to parse BUNGEE_CONNECTOR_TIMEOUT; using default of %s; %s", defaultConnectorTimeout, err.Error())
		} else {
			ConnectorTimeout = timeout
		}
	}
}
