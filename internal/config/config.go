package config

import (
	"os"
	"strconv"
	"time"
)

// Config holds all configuration values
type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	Redis    RedisConfig
	Custody  CustodyConfig
	Gateway  GatewayConfig
	Swap     SwapConfig
	Payment  PaymentConfig
	Security SecurityConfig
	Chains   []ChainConfig // ordered; plan construction follows this order
}

// ServerConfig holds server configuration
type ServerConfig struct {
	Port string
	Env  string
}

// DatabaseConfig holds database configuration
type DatabaseConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	DBName   string
	SSLMode  string
}

// URL returns the database connection URL
func (c DatabaseConfig) URL() string {
	return "postgres://" + c.User + ":" + c.Password + "@" + c.Host + ":" + strconv.Itoa(c.Port) + "/" + c.DBName + "?sslmode=" + c.SSLMode + "&prepare_threshold=0"
}

// RedisConfig holds Redis configuration
type RedisConfig struct {
	URL      string
	PASSWORD string
}

// CustodyConfig holds custodial signing service configuration
type CustodyConfig struct {
	BaseURL     string
	APIKey      string
	WalletSetID string // optional; created lazily when empty
	PollTimeout time.Duration
}

// GatewayConfig holds bridging/settlement network configuration
type GatewayConfig struct {
	BaseURL             string // attestation service API
	SettlementChain     ChainConfig
	MinterAddress       string // message transmitter / minter on the settlement chain
	AttestationInterval time.Duration
	ContractCacheTTL    time.Duration
}

// SwapConfig selects and configures the swap provider. Exactly one provider
// is active per deployment.
type SwapConfig struct {
	Provider          string // "router" | "aggregator"
	AggregatorBaseURL string
	SlippageBps       int64 // minimum-output floor below the live quote
	QuoteDeadline     time.Duration
}

// PaymentConfig holds orchestration fee and timing parameters
type PaymentConfig struct {
	ProtocolFeePercent string // e.g. "0.003"
	BridgeFeeFlat      string // per contributing chain, settlement units
	DestinationGasFlat string // settlement units
	ConfirmationTTL    time.Duration
	StuckTimeout       time.Duration
	ExpirySweepEvery   time.Duration
	StuckSweepEvery    time.Duration
	BillingSweepEvery  time.Duration
}

// SecurityConfig holds encryption and signing keys
type SecurityConfig struct {
	SessionEncryptionKey string // 32-byte hex, subscription credentials at rest
	PaymentLinkSecret    string
	PaymentLinkTTL       time.Duration
}

// ChainConfig describes one configured source chain
type ChainConfig struct {
	Key           string // stable identifier, e.g. "base-sepolia"
	Name          string
	ChainID       int64
	RPCURL        string
	USDCAddress   string
	RouterAddress string // DEX router; empty when HasSwap is false
	WrappedNative string // wrapped native token, swap path entry point
	GatewayDomain uint32 // bridge domain identifier
	NativeSymbol  string
	HasSwap       bool
}

// Load loads configuration from environment variables
func Load() *Config {
	return &Config{
		Server: ServerConfig{
			Port: getEnv("SERVER_PORT", "8080"),
			Env:  getEnv("SERVER_ENV", "development"),
		},
		Database: DatabaseConfig{
			Host:     getEnv("DB_HOST", "localhost"),
			Port:     getEnvAsInt("DB_PORT", 5432),
			User:     getEnv("DB_USER", "postgres"),
			Password: getEnv("DB_PASSWORD", "postgres"),
			DBName:   getEnv("DB_NAME", "stablepay"),
			SSLMode:  getEnv("DB_SSLMODE", "disable"),
		},
		Redis: RedisConfig{
			URL:      getEnv("REDIS_URL", "redis://localhost:6379"),
			PASSWORD: getEnv("REDIS_PASSWORD", ""),
		},
		Custody: CustodyConfig{
			BaseURL:     getEnv("CUSTODY_API_URL", "https://api.custody.example.com"),
			APIKey:      getEnv("CUSTODY_API_KEY", ""),
			WalletSetID: getEnv("CUSTODY_WALLET_SET_ID", ""),
			PollTimeout: getEnvAsDuration("CUSTODY_POLL_TIMEOUT", 5*time.Minute),
		},
		Gateway: GatewayConfig{
			BaseURL: getEnv("GATEWAY_API_URL", "https://gateway-api-testnet.example.com"),
			SettlementChain: ChainConfig{
				Key:           getEnv("SETTLEMENT_CHAIN_KEY", "settlement-testnet"),
				Name:          "Settlement Testnet",
				ChainID:       getEnvAsInt64("SETTLEMENT_CHAIN_ID", 84532),
				RPCURL:        getEnv("SETTLEMENT_RPC_URL", "https://sepolia.base.org"),
				USDCAddress:   getEnv("SETTLEMENT_USDC_ADDRESS", "0x036CbD53842c5426634e7929541eC2318f3dCF7e"),
				GatewayDomain: uint32(getEnvAsInt("SETTLEMENT_GATEWAY_DOMAIN", 6)),
				NativeSymbol:  "ETH",
			},
			MinterAddress:       getEnv("GATEWAY_MINTER_ADDRESS", "0xE737e5cEBEEBa77EFE34D4aa090756590b1CE275"),
			AttestationInterval: getEnvAsDuration("GATEWAY_ATTESTATION_INTERVAL", 5*time.Second),
			ContractCacheTTL:    getEnvAsDuration("GATEWAY_CONTRACT_CACHE_TTL", 15*time.Minute),
		},
		Swap: SwapConfig{
			Provider:          getEnv("SWAP_PROVIDER", "router"),
			AggregatorBaseURL: getEnv("SWAP_AGGREGATOR_URL", "https://aggregator-api.example.com"),
			SlippageBps:       int64(getEnvAsInt("SWAP_SLIPPAGE_BPS", 50)),
			QuoteDeadline:     getEnvAsDuration("SWAP_QUOTE_DEADLINE", 20*time.Minute),
		},
		Payment: PaymentConfig{
			ProtocolFeePercent: getEnv("PROTOCOL_FEE_PERCENT", "0.003"),
			BridgeFeeFlat:      getEnv("BRIDGE_FEE_FLAT", "0.10"),
			DestinationGasFlat: getEnv("DESTINATION_GAS_FLAT", "0.05"),
			ConfirmationTTL:    getEnvAsDuration("CONFIRMATION_TTL", 1*time.Hour),
			StuckTimeout:       getEnvAsDuration("STUCK_JOB_TIMEOUT", 30*time.Minute),
			ExpirySweepEvery:   getEnvAsDuration("EXPIRY_SWEEP_INTERVAL", 30*time.Second),
			StuckSweepEvery:    getEnvAsDuration("STUCK_SWEEP_INTERVAL", 1*time.Minute),
			BillingSweepEvery:  getEnvAsDuration("BILLING_SWEEP_INTERVAL", 1*time.Minute),
		},
		Security: SecurityConfig{
			SessionEncryptionKey: getEnv("SESSION_ENCRYPTION_KEY", "0000000000000000000000000000000000000000000000000000000000000000"), // 32-byte hex
			PaymentLinkSecret:    getEnv("PAYMENT_LINK_SECRET", "change-this-in-production"),
			PaymentLinkTTL:       getEnvAsDuration("PAYMENT_LINK_TTL", 24*time.Hour),
		},
		Chains: defaultChains(),
	}
}

// defaultChains returns the configured source chains in plan order. RPC
// endpoints are overridable per chain; the set itself is deployment-static.
func defaultChains() []ChainConfig {
	return []ChainConfig{
		{
			Key:           "base-sepolia",
			Name:          "Base Sepolia",
			ChainID:       84532,
			RPCURL:        getEnv("BASE_SEPOLIA_RPC_URL", "https://sepolia.base.org"),
			USDCAddress:   getEnv("BASE_SEPOLIA_USDC", "0x036CbD53842c5426634e7929541eC2318f3dCF7e"),
			RouterAddress: getEnv("BASE_SEPOLIA_ROUTER", "0x1689E7B1F10000AE47eBfE339a4f69dECd19F602"),
			WrappedNative: getEnv("BASE_SEPOLIA_WETH", "0x4200000000000000000000000000000000000006"),
			GatewayDomain: 6,
			NativeSymbol:  "ETH",
			HasSwap:       true,
		},
		{
			Key:           "avalanche-fuji",
			Name:          "Avalanche Fuji",
			ChainID:       43113,
			RPCURL:        getEnv("AVALANCHE_FUJI_RPC_URL", "https://api.avax-test.network/ext/bc/C/rpc"),
			USDCAddress:   getEnv("AVALANCHE_FUJI_USDC", "0x5425890298aed601595a70AB815c96711a31Bc65"),
			RouterAddress: getEnv("AVALANCHE_FUJI_ROUTER", "0xd7f655E3376cE2D7A2b08fF01Eb3B1023191A901"),
			WrappedNative: getEnv("AVALANCHE_FUJI_WAVAX", "0xd00ae08403B9bbb9124bB305C09058E32C39A48c"),
			GatewayDomain: 1,
			NativeSymbol:  "AVAX",
			HasSwap:       true,
		},
		{
			Key:           "ethereum-sepolia",
			Name:          "Ethereum Sepolia",
			ChainID:       11155111,
			RPCURL:        getEnv("ETHEREUM_SEPOLIA_RPC_URL", "https://rpc.sepolia.org"),
			USDCAddress:   getEnv("ETHEREUM_SEPOLIA_USDC", "0x1c7D4B196Cb0C7B01d743Fbc6116a902379C7238"),
			GatewayDomain: 0,
			NativeSymbol:  "ETH",
			HasSwap:       false,
		},
	}
}

// ChainByKey returns the chain config for a key, or nil when unknown.
func (c *Config) ChainByKey(key string) *ChainConfig {
	for i := range c.Chains {
		if c.Chains[i].Key == key {
			return &c.Chains[i]
		}
	}
	return nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvAsInt64(key string, defaultValue int64) int64 {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.ParseInt(value, 10, 64); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}
