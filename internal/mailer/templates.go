package mailer

import "html/template"

// ApprovalEmail feeds the internal approval notification.
type ApprovalEmail struct {
	To               string
	BriefID          int64
	VenueName        string
	VenueType        string
	Location         string
	ContactName      string
	ContactEmail     string
	ApprovalURL      string
	SchedulePreBuilt bool
	TopGenres        []string
	BPMRanges        []string
	DaypartLines     []DaypartLine
	Summary          string
}

// DaypartLine is one daypart row in the approval email.
type DaypartLine struct {
	Label     string
	Playlists []string
}

// FollowUpEmail feeds the 7-day check-in and 30-day refresh mails.
type FollowUpEmail struct {
	To          string
	Subject     string
	ContactName string
	VenueName   string
	Intro       string
	PixelURL    string
}

var approvalTmpl = template.Must(template.New("approval").Parse(`<!DOCTYPE html>
<html>
<body style="font-family:Arial,sans-serif;color:#2b2b2b;max-width:640px;margin:0 auto;">
  <h2 style="color:#1a1a2e;">New music brief: {{.VenueName}}</h2>
  <p>Brief #{{.BriefID}}{{if .VenueType}} · {{.VenueType}}{{end}}{{if .Location}} · {{.Location}}{{end}}</p>
  {{if .ContactName}}<p>Contact: {{.ContactName}}{{if .ContactEmail}} &lt;{{.ContactEmail}}&gt;{{end}}</p>{{end}}
  {{if .SchedulePreBuilt}}
  <p style="background:#e6f4ea;border-radius:6px;padding:8px 12px;display:inline-block;">
    Schedule pre-built on the platform — approval binds it to the zones.
  </p>
  {{end}}
  {{if .TopGenres}}
  <h3>Designer brief</h3>
  <p>Genres: {{range $i, $g := .TopGenres}}{{if $i}}, {{end}}{{$g}}{{end}}</p>
  {{if .BPMRanges}}<p>BPM: {{range $i, $b := .BPMRanges}}{{if $i}}, {{end}}{{$b}}{{end}}</p>{{end}}
  {{end}}
  {{if .DaypartLines}}
  <h3>Programming</h3>
  <ul>
  {{range .DaypartLines}}
    <li><strong>{{.Label}}</strong>: {{range $i, $p := .Playlists}}{{if $i}}, {{end}}{{$p}}{{end}}</li>
  {{end}}
  </ul>
  {{end}}
  {{if .Summary}}<p style="color:#555;">{{.Summary}}</p>{{end}}
  {{if .ApprovalURL}}
  <p style="margin-top:24px;">
    <a href="{{.ApprovalURL}}" style="background:#1a1a2e;color:#fff;padding:12px 24px;border-radius:6px;text-decoration:none;">
      Review &amp; activate schedule
    </a>
  </p>
  <p style="color:#888;font-size:12px;">The link expires in 7 days.</p>
  {{end}}
</body>
</html>`))

var followUpTmpl = template.Must(template.New("followup").Parse(`<!DOCTYPE html>
<html>
<body style="font-family:Arial,sans-serif;color:#2b2b2b;max-width:640px;margin:0 auto;">
  <p>Hi {{if .ContactName}}{{.ContactName}}{{else}}there{{end}},</p>
  <p>{{.Intro}}</p>
  <p>Just reply to this email and our music designers will take it from there.</p>
  <p style="margin-top:24px;">Warm regards,<br>The BMAsia team</p>
  {{if .PixelURL}}<img src="{{.PixelURL}}" width="1" height="1" alt="" style="display:none;">{{end}}
</body>
</html>`))
