package whatsapp

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"sync"
	"time"

	"github.com/mdp/qrterminal/v3"
	qrCode "github.com/skip2/go-qrcode"
	"google.golang.org/protobuf/proto"

	"go.mau.fi/whatsmeow"
	"go.mau.fi/whatsmeow/proto/waCompanionReg"
	"go.mau.fi/whatsmeow/store"
	"go.mau.fi/whatsmeow/store/sqlstore"
	"go.mau.fi/whatsmeow/types"

	_ "github.com/jackc/pgx/v5/stdlib"
	_ "github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"

	"github.com/nattydev/whatsguard/pkg/env"
	"github.com/nattydev/whatsguard/pkg/log"
)

var (
	ErrNotReady       = errors.New("WhatsApp Client is not Ready")
	ErrNotLoggedIn    = errors.New("WhatsApp Client is not Logged In")
	ErrInvalidGroupID = errors.New("WhatsApp Group ID is Not Group Server")
)

const (
	qrChannelWaitTimeout    = 2 * time.Minute
	pairPhoneRequestTimeout = 90 * time.Second
)

// Session owns the single WhatsApp device connection of this process.
type Session struct {
	mu        sync.RWMutex
	client    *whatsmeow.Client
	datastore *sqlstore.Container
	dataDir   string
}

func normalizeDatastoreDriver(driver string) string {
	switch strings.ToLower(driver) {
	case "postgresql", "postgres", "pgx":
		return "pgx"
	case "pq":
		return "postgres"
	default:
		return strings.ToLower(driver)
	}
}

func normalizeDatastoreDSN(driver string, dsn string) string {
	if driver != "pgx" {
		return dsn
	}
	appendParam := func(current string, key string, value string) string {
		if strings.Contains(current, key+"=") {
			return current
		}
		separator := "?"
		if strings.Contains(current, "?") {
			if strings.HasSuffix(current, "?") || strings.HasSuffix(current, "&") {
				separator = ""
			} else {
				separator = "&"
			}
		}
		return current + separator + key + "=" + value
	}
	dsn = appendParam(dsn, "prefer_simple_protocol", "true")
	dsn = appendParam(dsn, "statement_cache_capacity", "0")
	dsn = appendParam(dsn, "default_query_exec_mode", "simple_protocol")
	return dsn
}

// NewSession opens the session datastore and binds the stored device, creating
// a fresh one when the process has never paired.
func NewSession(ctx context.Context) (*Session, error) {
	if ctx == nil {
		ctx = context.Background()
	}

	dataDir := env.GetEnvStringOrDefault("WHATSGUARD_DATA_DIR", "data")
	if err := os.MkdirAll(dataDir, 0o755); err != nil {
		return nil, fmt.Errorf("create data directory: %w", err)
	}

	dbType := env.GetEnvStringOrDefault("WHATSAPP_DATASTORE_TYPE", "sqlite3")
	dbURI := env.GetEnvStringOrDefault("WHATSAPP_DATASTORE_URI",
		"file:"+filepath.Join(dataDir, "session.db")+"?_foreign_keys=on")

	driver := normalizeDatastoreDriver(dbType)
	dbURI = normalizeDatastoreDSN(driver, dbURI)

	log.Print(nil).Info("Initializing WhatsApp datastore with driver=" + driver)

	datastore, err := sqlstore.New(ctx, driver, dbURI, nil)
	if err != nil {
		return nil, fmt.Errorf("initialize datastore: %w", err)
	}

	device, err := datastore.GetFirstDevice(ctx)
	if err != nil {
		return nil, fmt.Errorf("load device: %w", err)
	}
	if device == nil {
		device = datastore.NewDevice()
	}

	store.DeviceProps.Os = proto.String("whatsguard (" + runtime.GOOS + ")")
	store.DeviceProps.PlatformType = waCompanionReg.DeviceProps_CHROME.Enum()
	store.DeviceProps.RequireFullSync = proto.Bool(false)

	client := whatsmeow.NewClient(device, nil)
	client.AutoTrustIdentity = true

	return &Session{
		client:    client,
		datastore: datastore,
		dataDir:   dataDir,
	}, nil
}

// Client exposes the underlying whatsmeow client for wiring only; transport
// operations go through the Transport methods.
func (s *Session) Client() *whatsmeow.Client {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.client
}

func (s *Session) DataDir() string {
	return s.dataDir
}

// LIDStore exposes the device's learned PN<->LID mapping table.
func (s *Session) LIDStore() store.LIDStore {
	client := s.Client()
	if client == nil || client.Store == nil {
		return nil
	}
	return client.Store.LIDs
}

func (s *Session) OnEvent(handler func(evt interface{})) {
	if client := s.Client(); client != nil {
		client.AddEventHandler(handler)
	}
}

func (s *Session) ensureReady() (*whatsmeow.Client, error) {
	client := s.Client()
	if client == nil {
		return nil, ErrNotReady
	}
	if !client.IsConnected() {
		return nil, ErrNotReady
	}
	if !client.IsLoggedIn() {
		return nil, ErrNotLoggedIn
	}
	return client, nil
}

func (s *Session) IsReady() bool {
	_, err := s.ensureReady()
	return err == nil
}

// SelfID returns the device's own phone-number JID, or the zero JID before
// login completes.
func (s *Session) SelfID() types.JID {
	client := s.Client()
	if client == nil || client.Store == nil || client.Store.ID == nil {
		return types.EmptyJID
	}
	return *client.Store.ID
}

// SelfLID returns the device's own privacy identifier, when known.
func (s *Session) SelfLID() types.JID {
	client := s.Client()
	if client == nil || client.Store == nil {
		return types.EmptyJID
	}
	return client.Store.LID
}

// Connect establishes the socket for an already-paired device.
func (s *Session) Connect(ctx context.Context) error {
	client := s.Client()
	if client == nil {
		return ErrNotReady
	}
	if client.Store.ID == nil {
		return ErrNotLoggedIn
	}
	if client.IsConnected() {
		return nil
	}
	return client.Connect()
}

// LoginQR pairs a fresh device: the code is rendered in the terminal and also
// written as login-qr.png next to the session data for headless setups. Blocks
// until pairing succeeds, the QR channel closes, or the timeout elapses.
func (s *Session) LoginQR(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}
	client := s.Client()
	if client == nil {
		return ErrNotReady
	}
	if client.Store.ID != nil {
		return s.Connect(ctx)
	}

	qrCtx, cancel := context.WithTimeout(ctx, qrChannelWaitTimeout)
	defer cancel()

	qrChan, err := client.GetQRChannel(qrCtx)
	if err != nil {
		return fmt.Errorf("open QR channel: %w", err)
	}
	if err := client.Connect(); err != nil {
		return fmt.Errorf("connect for pairing: %w", err)
	}

	qrPath := filepath.Join(s.dataDir, "login-qr.png")
	for evt := range qrChan {
		switch evt.Event {
		case "code":
			qrterminal.GenerateHalfBlock(evt.Code, qrterminal.L, os.Stdout)
			if err := qrCode.WriteFile(evt.Code, qrCode.Medium, 256, qrPath); err != nil {
				log.Print(nil).WithError(err).Warn("Failed to write login QR image")
			}
			log.Print(nil).Info("Scan the QR code above (also saved to " + qrPath + ")")
		case "success":
			_ = os.Remove(qrPath)
			log.Print(nil).Info("WhatsApp pairing successful for " + maskJIDForLog(s.SelfID().String()))
			return nil
		case "timeout":
			return errors.New("WhatsApp pairing QR timed out")
		default:
			log.Print(nil).Info("Pairing event: " + evt.Event)
		}
	}
	if client.Store.ID == nil {
		return errors.New("WhatsApp pairing did not complete")
	}
	return nil
}

// PairCode requests a phone-number pairing code instead of a QR scan.
func (s *Session) PairCode(ctx context.Context, phone string) (string, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	client := s.Client()
	if client == nil {
		return "", ErrNotReady
	}
	if client.Store.ID != nil {
		return "", errors.New("WhatsApp device is already paired")
	}

	if !client.IsConnected() {
		if err := client.Connect(); err != nil {
			return "", fmt.Errorf("connect for pairing: %w", err)
		}
	}

	pairCtx, cancel := context.WithTimeout(ctx, pairPhoneRequestTimeout)
	defer cancel()

	phone = strings.TrimPrefix(strings.TrimSpace(phone), "+")
	code, err := client.PairPhone(pairCtx, phone, true, whatsmeow.PairClientChrome, "Chrome ("+runtime.GOOS+")")
	if err != nil {
		return "", fmt.Errorf("request pairing code: %w", err)
	}
	return code, nil
}

func (s *Session) Disconnect() {
	if client := s.Client(); client != nil && client.IsConnected() {
		client.Disconnect()
	}
}

func maskJIDForLog(jid string) string {
	if len(jid) < 4 {
		return jid
	}
	return jid[0:len(jid)-4] + "xxxx"
}
