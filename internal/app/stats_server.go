package app

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

// WebSocket upgrader for real-time stats
var wsUpgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// startHealthServer starts an HTTP server for health checks and stats.
func (r *Runner) startHealthServer(port int) {
	r.healthServer = &http.Server{
		Addr:    fmt.Sprintf(":%d", port),
		Handler: r.statsMux(),
	}

	go func() {
		if err := r.healthServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			r.clients.Logger.Error("health server error", zap.Error(err))
		}
	}()
}

// statsMux builds the handler tree for the health server.
func (r *Runner) statsMux() *http.ServeMux {
	mux := http.NewServeMux()

	// Health check endpoint
	mux.HandleFunc("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})

	// JSON stats endpoint
	mux.HandleFunc("/stats", func(w http.ResponseWriter, _ *http.Request) {
		stats := r.GetStats()
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		json.NewEncoder(w).Encode(stats)
	})

	// Effective config; secret fields are excluded from serialization
	mux.HandleFunc("/config", func(w http.ResponseWriter, _ *http.Request) {
		data, err := r.cfg.ToJSON()
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		w.Write(data)
	})

	// WebSocket endpoint for real-time stats
	mux.HandleFunc("/ws", func(w http.ResponseWriter, req *http.Request) {
		conn, err := wsUpgrader.Upgrade(w, req, nil)
		if err != nil {
			r.clients.Logger.Error("websocket upgrade failed", zap.Error(err))
			return
		}
		defer conn.Close()

		// Send stats every second
		ticker := time.NewTicker(1 * time.Second)
		defer ticker.Stop()

		for range ticker.C {
			stats := r.GetStats()
			if err := conn.WriteJSON(stats); err != nil {
				return // Client disconnected
			}
		}
	})

	// HTML dashboard
	mux.HandleFunc("/", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(dashboardHTML))
	})

	return mux
}

const dashboardHTML = `<!DOCTYPE html>
<html lang="en">
<head>
    <meta charset="UTF-8">
    <meta name="viewport" content="width=device-width, initial-scale=1.0">
    <title>Kalshiwatch Stats</title>
    <style>
        :root {
            --bg-primary: #0d1117;
            --bg-secondary: #161b22;
            --bg-tertiary: #21262d;
            --border-color: #30363d;
            --text-primary: #c9d1d9;
            --text-secondary: #8b949e;
            --text-heading: #f0f6fc;
            --accent-blue: #58a6ff;
            --accent-green: #3fb950;
            --accent-red: #f85149;
            --accent-yellow: #d29922;
            --accent-orange: #f0883e;
        }
        * { box-sizing: border-box; margin: 0; padding: 0; }
        body {
            font-family: -apple-system, BlinkMacSystemFont, 'Segoe UI', Roboto, monospace;
            background: var(--bg-primary);
            color: var(--text-primary);
            padding: 20px;
            line-height: 1.5;
        }
        h1 { color: var(--accent-blue); margin-bottom: 4px; font-size: 24px; }
        .subtitle { color: var(--text-secondary); font-size: 13px; margin-bottom: 20px; }
        .grid { display: grid; grid-template-columns: repeat(auto-fit, minmax(300px, 1fr)); gap: 20px; }
        .card {
            background: var(--bg-secondary);
            border: 1px solid var(--border-color);
            border-radius: 8px;
            padding: 16px;
        }
        .card h3 { color: var(--accent-blue); font-size: 16px; margin-bottom: 12px; }
        .stat-row { display: flex; justify-content: space-between; padding: 6px 0; border-bottom: 1px solid var(--bg-tertiary); }
        .stat-row:last-child { border-bottom: none; }
        .stat-label { color: var(--text-secondary); }
        .stat-value { color: var(--text-heading); font-weight: 600; }
        .stat-value.green { color: var(--accent-green); }
        .stat-value.red { color: var(--accent-red); }
        .stat-value.yellow { color: var(--accent-yellow); }
        .stat-value.orange { color: var(--accent-orange); }
        .feed-item { background: var(--bg-tertiary); padding: 12px; border-radius: 6px; margin-bottom: 8px; border-left: 3px solid var(--accent-yellow); }
        .feed-item.tier-critical { border-left-color: var(--accent-red); }
        .feed-item.tier-high { border-left-color: var(--accent-orange); }
        .feed-time { color: var(--text-secondary); font-size: 12px; }
        .feed-market { color: var(--text-primary); font-size: 14px; font-weight: 600; }
        .feed-detail { color: var(--text-secondary); font-size: 13px; margin-top: 4px; }
        .sparkline { height: 40px; display: flex; align-items: flex-end; gap: 2px; margin-top: 8px; }
        .sparkline-bar { background: var(--accent-blue); border-radius: 2px 2px 0 0; flex: 1; min-height: 2px; }
        .footer { margin-top: 30px; padding: 20px; text-align: center; border-top: 1px solid var(--border-color); color: var(--text-secondary); font-size: 13px; }
    </style>
</head>
<body>
    <h1>kalshiwatch</h1>
    <div class="subtitle">pre-event trade monitor &middot; <span id="uptime">-</span> up &middot; epoch <span id="epoch">-</span></div>

    <div class="grid">
        <div class="card">
            <h3>Scanning</h3>
            <div class="stat-row"><span class="stat-label">Interval</span><span class="stat-value" id="scanInterval">-</span></div>
            <div class="stat-row"><span class="stat-label">In flight</span><span class="stat-value" id="scanning">-</span></div>
            <div class="stat-row"><span class="stat-label">Last scan</span><span class="stat-value" id="lastScan">-</span></div>
            <div class="stat-row"><span class="stat-label">Qualified markets</span><span class="stat-value" id="lastQualified">-</span></div>
            <div class="stat-row"><span class="stat-label">Markets seen</span><span class="stat-value" id="marketsSeen">-</span></div>
            <div class="stat-row"><span class="stat-label">Trades examined</span><span class="stat-value" id="tradesExamined">-</span></div>
            <div class="stat-row"><span class="stat-label">Cycle errors</span><span class="stat-value red" id="cycleErrors">-</span></div>
        </div>

        <div class="card">
            <h3>Alerts</h3>
            <div class="stat-row"><span class="stat-label">Total</span><span class="stat-value" id="alertsTotal">-</span></div>
            <div class="stat-row"><span class="stat-label">Critical (&le;15m)</span><span class="stat-value red" id="alertsCritical">-</span></div>
            <div class="stat-row"><span class="stat-label">High (&le;30m)</span><span class="stat-value orange" id="alertsHigh">-</span></div>
            <div class="stat-row"><span class="stat-label">Medium</span><span class="stat-value yellow" id="alertsMedium">-</span></div>
            <div class="stat-row"><span class="stat-label">Last hour</span><span class="stat-value" id="alertsHour">-</span></div>
            <div class="stat-row"><span class="stat-label">Last alert</span><span class="stat-value" id="lastAlert">-</span></div>
            <div class="sparkline" id="sparkline"></div>
        </div>

        <div class="card">
            <h3>Filters</h3>
            <div class="stat-row"><span class="stat-label">No timestamp</span><span class="stat-value" id="skipNoTs">-</span></div>
            <div class="stat-row"><span class="stat-label">Before epoch</span><span class="stat-value" id="skipEpoch">-</span></div>
            <div class="stat-row"><span class="stat-label">Low notional</span><span class="stat-value" id="skipNotional">-</span></div>
            <div class="stat-row"><span class="stat-label">Duplicate</span><span class="stat-value" id="skipDup">-</span></div>
            <div class="stat-row"><span class="stat-label">Outside window</span><span class="stat-value" id="skipWindow">-</span></div>
            <div class="stat-row"><span class="stat-label">Ledger</span><span class="stat-value" id="ledger">-</span></div>
        </div>

        <div class="card">
            <h3>Channels</h3>
            <div class="stat-row"><span class="stat-label">Discord</span><span class="stat-value" id="discordEnabled">-</span></div>
            <div class="stat-row"><span class="stat-label">Telegram</span><span class="stat-value" id="telegramEnabled">-</span></div>
            <div class="stat-row"><span class="stat-label">Goroutines</span><span class="stat-value" id="goroutines">-</span></div>
            <div class="stat-row"><span class="stat-label">Heap</span><span class="stat-value" id="heap">-</span></div>
        </div>
    </div>

    <div class="card" style="margin-top: 20px;">
        <h3>Recent Alerts</h3>
        <div id="feed"><span class="stat-label">none yet</span></div>
    </div>

    <div class="footer">
        build <span id="buildCommit">-</span> &middot; <span id="goVersion">-</span>
    </div>

    <script>
        function onOff(v) { return v ? '✅ on' : '❌ off'; }

        function render(s) {
            document.getElementById('uptime').textContent = s.uptime;
            document.getElementById('epoch').textContent = s.epoch || '-';
            document.getElementById('scanInterval').textContent = s.scan.interval;
            document.getElementById('scanning').textContent = s.scan.scanning ? 'yes' : 'no';
            document.getElementById('lastScan').textContent = s.scan.last_scan_ago ? s.scan.last_scan_ago + ' ago' : 'never';
            document.getElementById('lastQualified').textContent = s.scan.last_qualified;
            document.getElementById('marketsSeen').textContent = s.filters.markets_seen.toLocaleString();
            document.getElementById('tradesExamined').textContent = s.filters.trades_examined.toLocaleString();
            document.getElementById('cycleErrors').textContent = s.filters.cycle_errors + s.filters.market_errors;

            document.getElementById('alertsTotal').textContent = s.alerts.total;
            document.getElementById('alertsCritical').textContent = s.alerts.critical;
            document.getElementById('alertsHigh').textContent = s.alerts.high;
            document.getElementById('alertsMedium').textContent = s.alerts.medium;
            document.getElementById('alertsHour').textContent = s.alerts_last_hour;
            document.getElementById('lastAlert').textContent = s.last_alert_ago ? s.last_alert_ago + ' ago' : 'never';

            const spark = document.getElementById('sparkline');
            const buckets = s.alert_sparkline || [];
            const max = Math.max(1, ...buckets);
            spark.innerHTML = buckets.map(b =>
                '<div class="sparkline-bar" style="height:' + Math.max(5, b / max * 100) + '%"></div>'
            ).join('');

            document.getElementById('skipNoTs').textContent = s.filters.skipped_no_timestamp;
            document.getElementById('skipEpoch').textContent = s.filters.skipped_before_epoch;
            document.getElementById('skipNotional').textContent = s.filters.skipped_low_notional.toLocaleString();
            document.getElementById('skipDup').textContent = s.filters.skipped_duplicate;
            document.getElementById('skipWindow').textContent = s.filters.skipped_outside_window;
            document.getElementById('ledger').textContent = s.ledger.size + ' / ' + s.ledger.capacity;

            document.getElementById('discordEnabled').textContent = onOff(s.notifications.discord_enabled);
            document.getElementById('telegramEnabled').textContent = onOff(s.notifications.telegram_enabled);
            document.getElementById('goroutines').textContent = s.runtime.goroutines;
            document.getElementById('heap').textContent = (s.runtime.heap_alloc / 1048576).toFixed(1) + ' MB';

            document.getElementById('buildCommit').textContent = (s.build.commit || 'dev').substring(0, 8);
            document.getElementById('goVersion').textContent = s.build.go_version;

            const feed = document.getElementById('feed');
            const alerts = s.recent_alerts || [];
            if (alerts.length === 0) {
                feed.innerHTML = '<span class="stat-label">none yet</span>';
            } else {
                feed.innerHTML = alerts.slice(0, 20).map(a =>
                    '<div class="feed-item tier-' + a.risk_tier + '">' +
                    '<div class="feed-time">' + new Date(a.timestamp).toLocaleString() + ' &middot; ' + a.risk_tier + '</div>' +
                    '<div class="feed-market">' + a.market_ticker + '</div>' +
                    '<div class="feed-detail">' + a.side + ' ' + a.contracts.toLocaleString() + ' @ ' + a.price_cents + '¢ = $' +
                    a.notional.toLocaleString() + ' &middot; ' + a.minutes_before + 'm before close</div>' +
                    '</div>'
                ).join('');
            }
        }

        async function poll() {
            try {
                const resp = await fetch('/stats');
                render(await resp.json());
            } catch (e) { /* retry next tick */ }
        }

        function connect() {
            const proto = location.protocol === 'https:' ? 'wss:' : 'ws:';
            const ws = new WebSocket(proto + '//' + location.host + '/ws');
            ws.onmessage = ev => render(JSON.parse(ev.data));
            ws.onclose = () => setTimeout(connect, 3000);
            ws.onerror = () => ws.close();
        }

        poll();
        setInterval(poll, 10000);
        connect();
    </script>
</body>
</html>
`
