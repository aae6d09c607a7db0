/*
Package config loads the read path configuration from YAML files and the environment.

Sources are applied in order, later ones winning:

	┌─────────────────────────────────────────────┐
	│        Command line flags (cmd/objcat)      │ ← Highest Priority
	└─────────────────────────────────────────────┘
	                      │
	┌─────────────────────────────────────────────┐
	│        Environment Variables (OBJECTFS_*)   │
	└─────────────────────────────────────────────┘
	                      │
	┌─────────────────────────────────────────────┐
	│        Configuration File (YAML)            │
	└─────────────────────────────────────────────┘
	                      │
	┌─────────────────────────────────────────────┐
	│        NewDefault                           │ ← Lowest Priority
	└─────────────────────────────────────────────┘

# File Format

	global:
	  log_level: INFO        # DEBUG, INFO, WARN, ERROR
	  log_format: text       # text or json

	transport:
	  kind: simple           # simple (HTTP/1.1) or pooled (HTTP/2)
	  proxy_address: proxy.internal:3128
	  proxy_username: reader
	  proxy_password: secret
	  ca_cert_file: /etc/ssl/private-ca.pem
	  keep_alive_period: 30s
	  max_idle_conns: 100
	  timeouts:
	    connect: 30s
	    tls_handshake: 10s
	    idle_conn: 90s

	read:
	  trace_log_enabled: false

	storage:
	  s3:
	    region: us-east-1
	    endpoint: http://localhost:9000
	    force_path_style: true
	    max_retries: 3

	metrics:
	  enabled: true
	  namespace: objectfs
	  subsystem: readpath

# Environment Variables

	OBJECTFS_LOG_LEVEL, OBJECTFS_LOG_FORMAT, OBJECTFS_LOG_FILE
	OBJECTFS_TRANSPORT_KIND, OBJECTFS_PROXY_ADDRESS
	OBJECTFS_PROXY_USERNAME, OBJECTFS_PROXY_PASSWORD, OBJECTFS_CA_CERT_FILE
	OBJECTFS_CONNECT_TIMEOUT, OBJECTFS_KEEP_ALIVE_PERIOD, OBJECTFS_MAX_IDLE_CONNS
	OBJECTFS_TRACE_LOG
	OBJECTFS_S3_REGION, OBJECTFS_S3_ENDPOINT, OBJECTFS_S3_FORCE_PATH_STYLE, OBJECTFS_S3_MAX_RETRIES
	OBJECTFS_METRICS_ENABLED

Malformed numeric or duration values are reported as errors rather than ignored.

# Conversion

The converters TransportOptions, ReadOptions, S3Config, MetricsConfig and LoggerConfig
hand each section to the package that consumes it. Validate checks names and ranges only.
Proxy address syntax and credential pairing are checked by transport.New.

SaveToFile writes the proxy password in clear text with mode 0600.
*/
package config
