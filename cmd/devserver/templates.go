package main

const starterTemplate = `# devserver configuration
server:
  listen: ":8080"
  hot_reload: true
  read_timeout: 30s
  # Long media streams; 0 disables the write timeout.
  write_timeout: 0s
  idle_timeout: 120s
  headers: {}

static:
  root: dist
  rewrites:
    # Serve TypeScript sources referenced by source maps from src/.
    - suffix: ".ts"
      from: "dist/src"
      to: "src"

watch:
  enabled: true
  mode: poll        # poll or notify
  dir: "."
  extensions: [".ts", ".js", ".html", ".css"]
  interval: 500ms
  backoff: 1s

reload:
  enabled: true
  path: /__devserver/reload
  min_interval: 100ms

logging:
  level: info
  format: text
  output: stderr

metrics:
  enabled: true
  path: /__devserver/metrics
`
