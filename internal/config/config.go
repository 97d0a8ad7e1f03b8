package config // package config loads application configuration from environment variables

import (
    "log"     // log is used to report configuration errors and halt execution
    "os"      // os provides access to environment variables
    "strconv" // strconv converts strings to other types
    "strings" // strings splits list-valued variables
)

// Config holds all runtime configuration values.  Each field corresponds to
// an environment variable.  The types reflect how the values are used in
// the application: strings for identifiers and secrets, ints for durations
// and costs.
type Config struct {
    Env            string   // application environment (e.g. "dev", "prod")
    Port           string   // HTTP port to listen on
    DBUser         string   // database username
    DBPass         string   // database password (optional)
    DBHost         string   // database host address
    DBPort         string   // database port number
    DBName         string   // database name
    DBMaxOpen      int      // connection pool: max open connections
    DBMaxIdle      int      // connection pool: max idle connections
    JWTSecret      string   // secret used to sign JWTs
    AccessTTLMin   int      // access token time‑to‑live in minutes
    BcryptCost     int      // bcrypt cost for password hashing
    PublicPrefixes []string // path prefixes that bypass authorization
    OTPExpiryMin   int      // password-reset OTP lifetime in minutes

    AMQPURL string // RabbitMQ connection string for the mail queue

    SMTPHost string // mail relay host
    SMTPPort int    // mail relay port
    SMTPUser string // mail relay username
    SMTPPass string // mail relay password
    MailFrom string // From address on outgoing mail

    S3Region   string // object storage region
    S3Bucket   string // bucket for profile images
    S3Endpoint string // custom endpoint (MinIO etc.), empty for AWS
    S3Key      string // access key id
    S3Secret   string // secret access key
}

// defaultPublicPrefixes lists the endpoints reachable without a session:
// registration, login and the password-OTP flow, plus the health check.
var defaultPublicPrefixes = []string{
    "/api/v1/user/create",
    "/api/v1/auth/login",
    "/api/v1/password/",
    "/healthz",
}

// Load reads configuration values from environment variables and returns a
// Config.  Required variables are enforced by must() and missing values
// cause the program to exit with a fatal log message.  Mail, queue and
// object-storage settings are optional so the server can run without those
// collaborators in development.
func Load() Config {
    return Config{
        Env:            must("APP_ENV"),      // environment (dev/test/prod)
        Port:           must("APP_PORT"),     // port to bind the HTTP server
        DBUser:         must("DB_USER"),      // database user
        DBPass:         os.Getenv("DB_PASS"), // database password (empty allowed)
        DBHost:         must("DB_HOST"),      // database host
        DBPort:         must("DB_PORT"),      // database port
        DBName:         must("DB_NAME"),      // database name
        DBMaxOpen:      intOr("DB_MAX_OPEN_CONNS", 25),
        DBMaxIdle:      intOr("DB_MAX_IDLE_CONNS", 25),
        JWTSecret:      must("JWT_SECRET"),   // secret used for signing JWTs
        AccessTTLMin:   intOr("ACCESS_TOKEN_TTL_MIN", 1440),
        BcryptCost:     intOr("BCRYPT_COST", 12),
        PublicPrefixes: prefixList("AUTH_PUBLIC_PREFIXES"),
        OTPExpiryMin:   intOr("OTP_EXPIRY_MIN", 3),

        AMQPURL: os.Getenv("RABBITMQ_URL"),

        SMTPHost: os.Getenv("SMTP_HOST"),
        SMTPPort: intOr("SMTP_PORT", 587),
        SMTPUser: os.Getenv("SMTP_USER"),
        SMTPPass: os.Getenv("SMTP_PASSWORD"),
        MailFrom: os.Getenv("EMAILS_FROM_EMAIL"),

        S3Region:   os.Getenv("S3_REGION"),
        S3Bucket:   os.Getenv("S3_BUCKET"),
        S3Endpoint: os.Getenv("S3_ENDPOINT"),
        S3Key:      os.Getenv("S3_ACCESS_KEY"),
        S3Secret:   os.Getenv("S3_SECRET_KEY"),
    }
}

// must retrieves the value of a required environment variable.  If the
// variable is unset or empty, the application logs a fatal error and exits.
func must(key string) string {
    v, ok := os.LookupEnv(key)
    if !ok || v == "" {
        log.Fatalf("missing required env var: %s", key)
    }
    return v
}

// intOr converts an environment variable to an integer, falling back to a
// default when it is unset.  A set-but-invalid value is fatal.
func intOr(key string, def int) int {
    s := os.Getenv(key)
    if s == "" {
        return def
    }
    n, err := strconv.Atoi(s)
    if err != nil {
        log.Fatalf("invalid int for %s: %q", key, s)
    }
    return n
}

// prefixList parses a comma-separated prefix list, defaulting to the
// built-in public endpoints.
func prefixList(key string) []string {
    s := os.Getenv(key)
    if s == "" {
        return defaultPublicPrefixes
    }
    var out []string
    for _, p := range strings.Split(s, ",") {
        if p = strings.TrimSpace(p); p != "" {
            out = append(out, p)
        }
    }
    if len(out) == 0 {
        return defaultPublicPrefixes
    }
    return out
}
