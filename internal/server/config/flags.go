package config

import (
	"flag"
	"io"
	"time"

	"github.com/dmitrijs2005/sessionkeeper/internal/flagx"
	"github.com/dmitrijs2005/sessionkeeper/internal/timex"
)

var knownFlags = []string{
	"-a", "-g", "-d", "-l", "-e",
	"-access-secret", "-refresh-secret", "-t", "-r",
	"-store", "-redis", "-sweep",
}

// parseFlags overlays command-line flags:
//
//	-a string              HTTP bind address (":4000")
//	-g string              gRPC bind address (":50051")
//	-d string              PostgreSQL DSN
//	-l string              log level
//	-e string              environment ("production" enables Secure cookies)
//	-access-secret string  HMAC secret for access tokens
//	-refresh-secret string HMAC secret for refresh tokens
//	-t duration            access token lifetime ("15m")
//	-r duration            refresh token lifetime ("7d")
//	-store string          refresh token store: postgres | redis
//	-redis string          redis address
//	-sweep duration        expired refresh token sweep interval
func parseFlags(config *Config, args []string) error {
	fs := flag.NewFlagSet("server", flag.ContinueOnError)
	fs.SetOutput(io.Discard)

	fs.StringVar(&config.EndpointAddrHTTP, "a", config.EndpointAddrHTTP, "HTTP address")
	fs.StringVar(&config.EndpointAddrGRPC, "g", config.EndpointAddrGRPC, "gRPC address")
	fs.StringVar(&config.DatabaseDSN, "d", config.DatabaseDSN, "database DSN")
	fs.StringVar(&config.LogLevel, "l", config.LogLevel, "log level")
	fs.StringVar(&config.Environment, "e", config.Environment, "environment")
	fs.StringVar(&config.AccessTokenSecret, "access-secret", config.AccessTokenSecret, "access token secret")
	fs.StringVar(&config.RefreshTokenSecret, "refresh-secret", config.RefreshTokenSecret, "refresh token secret")
	fs.Func("t", "access token lifetime", durationFlag(&config.AccessTokenValidityDuration))
	fs.Func("r", "refresh token lifetime", durationFlag(&config.RefreshTokenValidityDuration))
	fs.StringVar(&config.RefreshTokenStore, "store", config.RefreshTokenStore, "refresh token store")
	fs.StringVar(&config.RedisAddr, "redis", config.RedisAddr, "redis address")
	fs.Func("sweep", "sweep interval", durationFlag(&config.SweepInterval))

	return fs.Parse(flagx.FilterArgs(args, knownFlags))
}

func durationFlag(dst *time.Duration) func(string) error {
	return func(s string) error {
		d, err := timex.ParseDuration(s)
		if err != nil {
			return err
		}
		*dst = d
		return nil
	}
}
