package medicover

import (
	"encoding/json"
	"fmt"
	"html"
	"medicover-assist/internal/chrono"
	"medicover-assist/lib/telemetry"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	_ "embed"

	"golang.org/x/time/rate"
)

//go:embed testdata/login_page.html
var loginPageTemplate string

const (
	testUsername      = "jan.kowalski"
	testPassword      = "hunter2"
	testLoginXsrf     = "login-xsrf-token"
	testSignIn        = "signin=4f1d0c"
	testSessionCookie = ".ASPXAUTH"
	testSessionValue  = "session-from-callback"
	testAntiForgery   = "anti-forgery-token"

	signInFormPath = "/core/login"
)

var testSignInFields = map[string]string{
	"code":          "auth-code",
	"id_token":      "eyJhbGciOi.id.token",
	"scope":         "openid profile",
	"state":         "OpenIdConnect.AuthenticationProperties=xyz",
	"session_state": "session-state",
}

var testNow = time.Date(2017, 10, 23, 10, 15, 0, 0, time.UTC)

const testFormModel = `{
	"availableRegions": [{"id": -2, "text": "Dowolny region"}, {"id": 204, "text": "Warszawa"}, {"id": 200, "text": "Kraków"}],
	"availableSpecializations": [{"id": -2, "text": "Dowolna specjalizacja"}, {"id": 9, "text": "Internista"}],
	"availableClinics": [{"id": -1, "text": "Dowolna placówka"}, {"id": 49284, "text": "Centrum Medicover Łódź"}],
	"availableDoctors": [],
	"availableLanguages": [{"id": -1, "text": "Dowolny"}]
}`

const testFreeSlots = `{
	"items": [
		{"appointmentDate": "2017-10-23T08:00:00", "doctorName": "Jan Żółw", "clinicName": "Centrum"},
		{"appointmentDate": "2017-10-25T09:30:00", "doctorName": "Anna Łąka", "clinicName": "Centrum"}
	],
	"searchedPeriodOfTheDay": 0
}`

// fakePortal mimics the portal endpoints the client talks to.
type fakePortal struct {
	t      *testing.T
	server *httptest.Server

	// raw JSON embedded in the login page
	loginModel string
	omitModel  bool
	// hidden field left out of the sign-in form
	omitSignInField string
	callbackStatus  int
	slotsStatus     int
	formModel       string
	// appointments the portal claims to have
	totalAppointments int
	// appointments the portal actually serves, -1 means totalAppointments
	deliveredAppointments int
	omitTotalCount        bool

	mutex           sync.Mutex
	hits            map[string]int
	signInQuery     string
	credentials     url.Values
	sessionSeen     []string
	antiForgerySeen []string
	formModelQuery  url.Values
	slotsQuery      url.Values
	slotsBody       map[string]any
	pageSizes       []string
}

func newFakePortal(t *testing.T) *fakePortal {
	escaped, err := json.Marshal(map[string]any{
		"loginUrl": signInFormPath + "?" + testSignIn,
		"antiForgery": map[string]string{
			"name":  "idsrv.xsrf",
			"value": testLoginXsrf,
		},
	})
	if err != nil {
		t.Fatal(err)
	}

	p := &fakePortal{
		t:                     t,
		loginModel:            string(escaped),
		callbackStatus:        http.StatusFound,
		slotsStatus:           http.StatusOK,
		formModel:             testFormModel,
		deliveredAppointments: -1,
		hits:                  map[string]int{},
	}

	mux := http.NewServeMux()
	mux.HandleFunc(logOnPath, p.handleLogOn)
	mux.HandleFunc(signInFormPath, p.handleSignInForm)
	mux.HandleFunc(oauthSignInPath, p.handleOAuthSignIn)
	mux.HandleFunc(logOffPath, p.handleLogOff)
	mux.HandleFunc(myVisitsPath, p.handleMyVisits)
	mux.HandleFunc(formModelPath, p.handleFormModel)
	mux.HandleFunc(freeSlotsPath, p.handleFreeSlots)
	mux.HandleFunc(visitsPath, p.handleVisits)
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/" {
			http.NotFound(w, r)
			return
		}
		p.hit(r)
		fmt.Fprint(w, "<html><body>Moje wizyty</body></html>")
	})

	p.server = httptest.NewServer(mux)
	t.Cleanup(p.server.Close)
	return p
}

func newTestClient(t *testing.T, p *fakePortal) (*Client, *telemetry.Recorder) {
	t.Cleanup(telemetry.SetupForTesting(t, "test:medicover"))

	rec := &telemetry.Recorder{}
	client, err := NewClient(ClientOptions{
		BaseUrl:   p.server.URL,
		Telemetry: rec,
		Time:      chrono.FixedTime(testNow),
		RateLimit: rate.Inf,
	})
	if err != nil {
		t.Fatal(err)
	}
	return client, rec
}

func (p *fakePortal) hit(r *http.Request) {
	p.mutex.Lock()
	defer p.mutex.Unlock()
	p.hits[r.Method+" "+r.URL.Path]++
}

func (p *fakePortal) count(key string) int {
	p.mutex.Lock()
	defer p.mutex.Unlock()
	return p.hits[key]
}

func (p *fakePortal) authenticated(w http.ResponseWriter, r *http.Request) bool {
	cookie, err := r.Cookie(testSessionCookie)
	if err != nil || cookie.Value != testSessionValue {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return false
	}
	p.mutex.Lock()
	defer p.mutex.Unlock()
	p.sessionSeen = append(p.sessionSeen, cookie.Value)
	return true
}

func (p *fakePortal) recordAntiForgery(r *http.Request) {
	values := []string{}
	for _, cookie := range r.Cookies() {
		if cookie.Name == antiForgeryCookie {
			values = append(values, cookie.Value)
		}
	}
	p.mutex.Lock()
	defer p.mutex.Unlock()
	p.antiForgerySeen = append(p.antiForgerySeen, strings.Join(values, ","))
}

func (p *fakePortal) handleLogOn(w http.ResponseWriter, r *http.Request) {
	p.hit(r)
	http.Redirect(w, r, signInFormPath+"?"+testSignIn, http.StatusFound)
}

func (p *fakePortal) handleSignInForm(w http.ResponseWriter, r *http.Request) {
	p.hit(r)

	if r.Method == http.MethodGet {
		model := ""
		if !p.omitModel {
			model = html.EscapeString(p.loginModel)
		}
		page := strings.ReplaceAll(loginPageTemplate, "{{MODEL}}", model)
		if p.omitModel {
			page = strings.ReplaceAll(page, `id="modelJson"`, `id="otherJson"`)
		}
		fmt.Fprint(w, page)
		return
	}

	err := r.ParseForm()
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	p.mutex.Lock()
	p.signInQuery = r.URL.RawQuery
	p.credentials = r.PostForm
	p.mutex.Unlock()

	if r.PostForm.Get("username") != testUsername ||
		r.PostForm.Get("password") != testPassword ||
		r.PostForm.Get("idsrv.xsrf") != testLoginXsrf {
		http.Error(w, "invalid credentials", http.StatusUnauthorized)
		return
	}

	var form strings.Builder
	form.WriteString(`<html><body><form method="POST" action="` + oauthSignInPath + `">`)
	for _, name := range oauthFields {
		if name == p.omitSignInField {
			continue
		}
		form.WriteString(fmt.Sprintf(
			`<input type="hidden" name="%s" value="%s" />`,
			name, html.EscapeString(testSignInFields[name]),
		))
	}
	form.WriteString(`<noscript><button type="submit">Submit</button></noscript></form></body></html>`)
	fmt.Fprint(w, form.String())
}

func (p *fakePortal) handleOAuthSignIn(w http.ResponseWriter, r *http.Request) {
	p.hit(r)
	err := r.ParseForm()
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	for name, expected := range testSignInFields {
		if r.PostForm.Get(name) != expected {
			http.Error(w, "bad field "+name, http.StatusBadRequest)
			return
		}
	}
	if p.callbackStatus >= 400 {
		http.Error(w, "callback failed", p.callbackStatus)
		return
	}
	http.SetCookie(w, &http.Cookie{Name: testSessionCookie, Value: testSessionValue, Path: "/", HttpOnly: true})
	http.Redirect(w, r, "/", p.callbackStatus)
}

func (p *fakePortal) handleLogOff(w http.ResponseWriter, r *http.Request) {
	p.hit(r)
	http.SetCookie(w, &http.Cookie{Name: testSessionCookie, Value: "", Path: "/", MaxAge: -1})
	fmt.Fprint(w, "<html><body>Wylogowano</body></html>")
}

func (p *fakePortal) handleMyVisits(w http.ResponseWriter, r *http.Request) {
	p.hit(r)
	if !p.authenticated(w, r) {
		return
	}
	if r.URL.Query().Get("bookingTypeId") != "2" || r.URL.Query().Get("pfm") != "1" {
		http.Error(w, "bad query", http.StatusBadRequest)
		return
	}
	http.SetCookie(w, &http.Cookie{Name: antiForgeryCookie, Value: testAntiForgery, Path: "/", HttpOnly: true})
	fmt.Fprint(w, "<html><body>Umów wizytę</body></html>")
}

func (p *fakePortal) handleFormModel(w http.ResponseWriter, r *http.Request) {
	p.hit(r)
	if !p.authenticated(w, r) {
		return
	}
	p.recordAntiForgery(r)
	p.mutex.Lock()
	p.formModelQuery = r.URL.Query()
	p.mutex.Unlock()

	w.Header().Set("Content-Type", "application/json")
	fmt.Fprint(w, p.formModel)
}

func (p *fakePortal) handleFreeSlots(w http.ResponseWriter, r *http.Request) {
	p.hit(r)
	if !p.authenticated(w, r) {
		return
	}
	p.recordAntiForgery(r)

	var body map[string]any
	err := json.NewDecoder(r.Body).Decode(&body)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	p.mutex.Lock()
	p.slotsQuery = r.URL.Query()
	p.slotsBody = body
	p.mutex.Unlock()

	if p.slotsStatus != http.StatusOK {
		http.Error(w, "search failed", p.slotsStatus)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	fmt.Fprint(w, testFreeSlots)
}

func (p *fakePortal) handleVisits(w http.ResponseWriter, r *http.Request) {
	p.hit(r)
	if !p.authenticated(w, r) {
		return
	}
	err := r.ParseForm()
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	page, err := strconv.Atoi(r.PostForm.Get("Page"))
	if err != nil || page < 1 {
		http.Error(w, "bad page", http.StatusBadRequest)
		return
	}
	p.mutex.Lock()
	p.pageSizes = append(p.pageSizes, r.PostForm.Get("PageSize"))
	p.mutex.Unlock()

	delivered := p.deliveredAppointments
	if delivered < 0 {
		delivered = p.totalAppointments
	}

	items := []map[string]any{}
	for i := (page - 1) * appointmentsPageSize; i < page*appointmentsPageSize && i < delivered; i++ {
		items = append(items, map[string]any{
			"id":              i,
			"appointmentDate": testNow.AddDate(0, 0, i).Format("2006-01-02T15:04:05"),
			"doctorName":      fmt.Sprintf("Doctor %d", i),
		})
	}

	response := map[string]any{"items": items}
	if !p.omitTotalCount {
		response["totalCount"] = p.totalAppointments
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(response)
}
