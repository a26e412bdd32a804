package config

import (
	"errors"
	"flag"
	"net"
	"strconv"
	"strings"
	"time"
)

// NetAddress holds structured network address data for host and port.
// It implements the flag.Value interface.
type NetAddress struct {
	Host string
	Port int
}

// ParseFlags parses all configuration flags.
//
// Flags:
//
//	-a server address in format [host]:[port]
//	-d database DSN
//	-c/-config json file path with configs
//	-double-encryption-key static envelope wrapping key (hex)
//	-algorithm cipher algorithm identifier
//	-legacy-salt global salt of the legacy derivation profile
//	-legacy-iv fixed IV of the legacy cipher configuration
//	-legacy-cutover migration cutover date (YYYY-MM-DD)
//	-password-hash-key credential hash key
//	-token-sign-key token signing key
//	-token-issuer token issuer name
//	-token-duration token duration (e.g., "1h", "30m")
//	-request-timeout request timeout (e.g., "30s", "1m")
func ParseFlags() *StructuredConfig {
	var serverAddress NetAddress
	var databaseDSN string
	var jsonConfigPath string
	var doubleEncryptionKey string
	var algorithm string
	var legacySalt string
	var legacyIV string
	var legacyCutover Date
	var passwordHashKey string
	var tokenSignKey string
	var tokenIssuer string
	var tokenDuration time.Duration
	var requestTimeout time.Duration

	flag.Var(&serverAddress, "a", "Net address host:port")
	flag.StringVar(&databaseDSN, "d", "", "Database DSN")
	flag.StringVar(&jsonConfigPath, "c", "", "JSON config file path")
	flag.StringVar(&jsonConfigPath, "config", "", "JSON config file path (alias)")
	flag.StringVar(&doubleEncryptionKey, "double-encryption-key", "", "Static envelope wrapping key (hex)")
	flag.StringVar(&algorithm, "algorithm", "", "Cipher algorithm identifier")
	flag.StringVar(&legacySalt, "legacy-salt", "", "Legacy derivation profile global salt")
	flag.StringVar(&legacyIV, "legacy-iv", "", "Legacy cipher fixed IV")
	flag.Var(&legacyCutover, "legacy-cutover", "Migration cutover date (YYYY-MM-DD)")
	flag.StringVar(&passwordHashKey, "password-hash-key", "", "Password hash key")
	flag.StringVar(&tokenSignKey, "token-sign-key", "", "Token signing key")
	flag.StringVar(&tokenIssuer, "token-issuer", "", "Token issuer")
	flag.DurationVar(&tokenDuration, "token-duration", 0, "Token duration (e.g., 1h, 30m)")
	flag.DurationVar(&requestTimeout, "request-timeout", 0, "Request timeout (e.g., 30s, 1m)")

	flag.Parse()

	return &StructuredConfig{
		App: App{
			DoubleEncryptionKey: doubleEncryptionKey,
			CipherAlgorithm:     algorithm,
			LegacySalt:          legacySalt,
			LegacyIV:            legacyIV,
			LegacyCutover:       legacyCutover,
			PasswordHashKey:     passwordHashKey,
			TokenSignKey:        tokenSignKey,
			TokenIssuer:         tokenIssuer,
			TokenDuration:       tokenDuration,
		},
		Storage: Storage{
			DB: DB{
				DSN: databaseDSN,
			},
		},
		Server: Server{
			HTTPAddress:    serverAddress.String(),
			RequestTimeout: requestTimeout,
		},
		JSONFilePath: jsonConfigPath,
	}
}

// String returns a canonical host:port string for a NetAddress.
func (a *NetAddress) String() string {
	if a.Host == "" && a.Port == 0 {
		return ""
	}

	return a.Host + ":" + strconv.Itoa(a.Port)
}

// Set parses the input string of form host:port and populates the NetAddress.
// It validates the port range, checks IP correctness unless host is "localhost",
// and returns an error if the format or values are invalid.
func (a *NetAddress) Set(s string) error {
	hostAndPort := strings.Split(s, ":")
	if len(hostAndPort) != 2 {
		return errors.New("need address in a form `host:port`")
	}

	host := hostAndPort[0]
	port, err := strconv.Atoi(hostAndPort[1])
	if err != nil {
		return err
	}

	if port < 1 {
		return errors.New("port number is a positive integer")
	}

	if host != "localhost" {
		ip := net.ParseIP(hostAndPort[0])
		if ip == nil {
			return errors.New("incorrect IP-address provided")
		}
	}

	a.Host = host
	a.Port = port
	return nil
}

// String implements flag.Value for Date flags.
func (d *Date) String() string {
	if d == nil || d.IsZero() {
		return ""
	}
	return d.Time().Format(dateLayout)
}

// Set implements flag.Value for Date flags.
func (d *Date) Set(s string) error {
	return d.UnmarshalText([]byte(s))
}
