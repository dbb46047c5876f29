package dashboard

const indexHeaderHTML = `<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<title>Sessions</title>
<style>
body { font-family: sans-serif; background: #1e1e1e; color: #ddd; margin: 2em; }
table { border-collapse: collapse; }
th, td { padding: 6px 14px; border-bottom: 1px solid #444; text-align: left; }
a { color: #6692ff; }
</style>
</head>
<body>
<h1>Sessions</h1>
<table>
<tr><th>Year</th><th>Event</th><th>Type</th><th>Charts</th></tr>
`

const indexRowHTML = `<tr><td>%d</td><td>%s</td><td>%s</td>
<td><a href="/dashboard/laptimes?session=%s">lap times</a>
 &middot; <a href="/dashboard/positions?session=%s">positions</a>
 &middot; <a href="/dashboard/stints?session=%s">tyre strategy</a>
 &middot; <a href="/api/laps?session=%s">laps (JSON)</a></td></tr>
`

const indexFooterHTML = `</table>
</body>
</html>
`
