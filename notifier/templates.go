package notifier

import (
	"html/template"
	"math"
	"time"
)

var mailTemplates = template.Must(template.New("mail").Parse(`
{{define "otp"}}
<h2>OTP Verification</h2>
<p>Your OTP is:</p>
<h1>{{.Code}}</h1>
<p>Valid for {{.Minutes}} minutes.</p>
{{end}}

{{define "activation"}}
<h2>Welcome to {{.Clinic}}</h2>
<p>A patient record has been created for you.</p>
<p>Please click the button below to set your password and activate your account:</p>
<a href="{{.Link}}" style="display:inline-block;padding:10px 20px;background:#155c3b;color:#fff;text-decoration:none;border-radius:5px;font-weight:bold;">Activate Account</a>
<p style="margin-top:20px;font-size:12px;color:#666;">This link expires in {{.Hours}} hours.</p>
{{end}}
`))

type otpView struct {
	Code    string
	Minutes int
}

type activationView struct {
	Clinic string
	Link   string
	Hours  int
}

func wholeMinutes(d time.Duration) int {
	return int(math.Ceil(d.Minutes()))
}

func wholeHours(d time.Duration) int {
	return int(math.Ceil(d.Hours()))
}
