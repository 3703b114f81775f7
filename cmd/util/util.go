package util

import (
	"fmt"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"github.com/vellumdb/vellum/lib/executor"
	"github.com/vellumdb/vellum/rpc/client"
	"github.com/vellumdb/vellum/rpc/common"
	"github.com/vellumdb/vellum/rpc/serializer"
	"github.com/vellumdb/vellum/rpc/transport"
	"github.com/vellumdb/vellum/rpc/transport/http"
	"github.com/vellumdb/vellum/rpc/transport/tcp"
	"github.com/vellumdb/vellum/rpc/transport/unix"
)

const (
	// Wrap is the number of characters to Wrap the help text at
	Wrap int = 50

	// defaultRangeCapacity is the identifier block size requested per
	// reservation when no range-capacity flag is given
	defaultRangeCapacity = 32
)

// WrapString wraps a string at Wrap characters
func WrapString(text string) string {
	var sb strings.Builder
	col := 0

	for _, word := range strings.Fields(text) {
		switch {
		case col == 0:
			// first word on the line, never wrapped
		case col+1+len(word) > Wrap:
			sb.WriteByte('\n')
			col = 0
		default:
			sb.WriteByte(' ')
			col++
		}
		sb.WriteString(word)
		col += len(word)
	}

	return sb.String()
}

// clientFlag describes one persistent client flag bound through viper
type clientFlag struct {
	key  string
	help string
}

// SetupRPCClientFlags adds the shared client connection flags to a command.
// The range-capacity flag sizes the identifier blocks a session's hi-lo
// allocator reserves, larger blocks mean fewer reservation round trips.
func SetupRPCClientFlags(cmd *cobra.Command) {
	intFlags := []struct {
		clientFlag
		def int
	}{
		{clientFlag{"timeout", "The timeout in seconds of the client"}, 10},
		{clientFlag{"transport-conn-per-endpoint", "Simultaneous connections per endpoint - for transports that support this feature"}, 1},
		{clientFlag{"transport-retries", "How many times to retry the request"}, 3},
		{clientFlag{"transport-write-buffer", "The size of the write buffer for the transport (in KB, ignored for http)"}, 512},
		{clientFlag{"transport-read-buffer", "The size of the read buffer for the transport (in KB, ignored for http)"}, 512},
		{clientFlag{"transport-tcp-keepalive", "The keepalive interval for the transport (in seconds, only for tcp)"}, 0},
		{clientFlag{"transport-tcp-linger", "The linger time for the transport (in seconds, only for tcp)"}, 0},
		{clientFlag{"range-capacity", "Identifier range size requested per reservation (hi-lo block size)"}, defaultRangeCapacity},
	}
	for _, f := range intFlags {
		cmd.PersistentFlags().Int(f.key, f.def, WrapString(f.help))
	}

	cmd.PersistentFlags().String("transport-endpoints", "http://localhost:8080",
		WrapString("The address of the vellum server. For transports that support load balancing, multiple endpoints can be specified as a comma-separated list"))
	cmd.PersistentFlags().Bool("transport-tcp-nodelay", true,
		WrapString("Whether to enable TCP_NODELAY for the transport (only for tcp)"))
}

// InitClientConfig initializes configuration from environment variables
func InitClientConfig() {
	// load env files
	_ = godotenv.Load(".env")
	_ = godotenv.Load(".env.local")

	// initialize viper
	viper.SetEnvPrefix("vellum")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv() // read in environment variables that match
}

// GetClientConfig reads client configuration from viper
func GetClientConfig() *common.ClientConfig {
	conf := &common.ClientConfig{
		TimeoutSecond: viper.GetInt("timeout"),
		Transport: common.ClientTransportConfig{
			RetryCount:             viper.GetInt("transport-retries"),
			Endpoints:              strings.Split(viper.GetString("transport-endpoints"), ","),
			ConnectionsPerEndpoint: viper.GetInt("transport-conn-per-endpoint"),
			SocketConf: common.SocketConf{
				WriteBufferSize: viper.GetInt("transport-write-buffer") * 1024,
				ReadBufferSize:  viper.GetInt("transport-read-buffer") * 1024,
			},
			TCPConf: common.TCPConf{
				TCPKeepAliveSec: viper.GetInt("transport-tcp-keepalive"),
				TCPLingerSec:    viper.GetInt("transport-tcp-linger"),
				TCPNoDelay:      viper.GetBool("transport-tcp-nodelay"),
			},
		},
	}

	return conf
}

// GetSerializer creates a serializer based on configuration
func GetSerializer() (serializer.IRPCSerializer, error) {
	switch viper.GetString("serializer") {
	case "json":
		return serializer.NewJSONSerializer(), nil
	case "gob":
		return serializer.NewGOBSerializer(), nil
	case "binary":
		return serializer.NewBinarySerializer(), nil
	default:
		return nil, fmt.Errorf("invalid serializer %s", viper.GetString("serializer"))
	}
}

// GetTransport creates transport based on configuration
func GetTransport() (transport.IRPCClientTransport, error) {
	switch viper.GetString("transport") {
	case "http":
		return http.NewHttpClientTransport(), nil
	case "tcp":
		return tcp.NewTCPClientTransport(), nil
	case "unix":
		return unix.NewUnixClientTransport(), nil
	default:
		return nil, fmt.Errorf("invalid transport %s", viper.GetString("transport"))
	}
}

// GetShardID retrieves the configured shard ID
func GetShardID() uint64 {
	return uint64(viper.GetInt("shard"))
}

// BindCommandFlags binds a command's flags to viper
func BindCommandFlags(cmd *cobra.Command) error {
	return viper.BindPFlags(cmd.Flags())
}

// GetRangeCapacity retrieves the configured identifier block size
func GetRangeCapacity() uint64 {
	if c := viper.GetInt("range-capacity"); c > 0 {
		return uint64(c)
	}
	return defaultRangeCapacity
}

// ConnectExecutor builds a remote executor from the configured serializer
// and transport for the configured shard.
func ConnectExecutor() (executor.IExecutor, error) {
	config := GetClientConfig()
	s, err := GetSerializer()
	if err != nil {
		return nil, err
	}
	t, err := GetTransport()
	if err != nil {
		return nil, err
	}
	return client.NewRPCExecutor(GetShardID(), *config, t, s)
}

// ConnectReserver builds a remote range reserver for the configured shard.
// It opens its own transport connection, reservations must not share the
// multiplexed executor sockets with bulk traffic.
func ConnectReserver() (executor.IRangeReserver, error) {
	config := GetClientConfig()
	s, err := GetSerializer()
	if err != nil {
		return nil, err
	}
	t, err := GetTransport()
	if err != nil {
		return nil, err
	}
	return client.NewRPCRangeReserver(GetShardID(), *config, t, s)
}
