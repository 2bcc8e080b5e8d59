package reload

import (
	"fmt"
	"net/http"
)

// clientScript reconnects after the server restarts, then reloads so the
// page picks up whatever changed while it was down.
const clientScript = `(function () {
  var url = (location.protocol === "https:" ? "wss://" : "ws://") + location.host + %q;
  var retry = 0;
  function connect() {
    var ws = new WebSocket(url);
    ws.onopen = function () {
      if (retry > 0) { location.reload(); }
      retry = 0;
    };
    ws.onmessage = function (event) {
      if (event.data === %q) { location.reload(); }
    };
    ws.onclose = function () {
      retry++;
      setTimeout(connect, Math.min(5000, 250 * retry));
    };
  }
  connect();
})();
`

// ScriptHandler serves the browser side of the hub connected to wsPath.
// Pages opt in with <script src="{wsPath}.js"></script>.
func ScriptHandler(wsPath string) http.Handler {
	body := []byte(fmt.Sprintf(clientScript, wsPath, Message))
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/javascript; charset=utf-8")
		w.Header().Set("Cache-Control", "no-store")
		w.Write(body)
	})
}
