// Package leclercdrive implements the vendor adapter for the Leclerc Drive
// grocery portal.
package leclercdrive

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"regexp"
	"strconv"
	"time"

	"github.com/SomeAverageDev/konnectors/internal/htmlutils"
	"github.com/SomeAverageDev/konnectors/internal/logging"
	"github.com/SomeAverageDev/konnectors/internal/runerror"
	"github.com/SomeAverageDev/konnectors/internal/vendor"
)

const (
	VendorName = "leclercdrive"
	BillType   = "shop"

	DefaultBaseURL   = "http://www.leclercdrive.fr"
	DefaultLoginURL  = "https://fd7-secure.leclercdrive.fr/secure/connecter.ashz"
	DefaultLogoutURL = "http://fd7-courses.leclercdrive.fr/deconnecter.ashz"

	coursesURLKey = "courses_url"
	clientIDKey   = "client_id"
)

// accountLinksXPath lists the links of the logged-in account box; the fifth
// one opens the order history.
const (
	accountLinksXPath = "//*[@id='ctl00_MasterHeader_AccesMonCompte_divWCLD306_ConnexionAuthentifie']//ul[@class='liste']/li"
	historyLinkIndex  = 4
)

var jsonpPayload = regexp.MustCompile(`(?s)({.*})`)

// Endpoints are the portal URLs used by the adapter.
type Endpoints struct {
	BaseURL  string
	LoginURL string
	// LogoutURL is called with a JSONP callback like the portal's own script.
	LogoutURL string
}

// DefaultEndpoints returns the production portal URLs.
func DefaultEndpoints() Endpoints {
	return Endpoints{
		BaseURL:   DefaultBaseURL,
		LoginURL:  DefaultLoginURL,
		LogoutURL: DefaultLogoutURL,
	}
}

// Adapter talks to the Leclerc Drive portal.
type Adapter struct {
	endpoints Endpoints
	httpOpts  vendor.HTTPOptions
	logger    logging.Logger
	now       func() time.Time
}

// New creates a Leclerc Drive adapter.
func New(endpoints Endpoints, httpOpts vendor.HTTPOptions, logger logging.Logger) *Adapter {
	return &Adapter{
		endpoints: endpoints,
		httpOpts:  httpOpts,
		logger:    logging.OrDefault(logger).WithField(logging.FieldVendor, VendorName),
		now:       time.Now,
	}
}

func (a *Adapter) Name() string { return VendorName }

type loginRequest struct {
	Login        string `json:"sLogin"`
	Password     string `json:"sMotDePasse"`
	StayLoggedIn bool   `json:"fResterConnecte"`
}

type loginResponse struct {
	Data *struct {
		CoursesURL *string          `json:"sURLCourses"`
		ClientID   *json.RawMessage `json:"iIdClient"`
	} `json:"objDonneesReponse"`
}

func (a *Adapter) callback() string {
	return "jQuery" + strconv.FormatInt(a.now().UnixNano(), 10) + "_" + strconv.FormatInt(a.now().UnixMilli(), 10)
}

// Login calls the JSONP login endpoint. The session is open when the answer
// carries both the shopping URL and the client id.
func (a *Adapter) Login(ctx context.Context, creds vendor.Credentials) (*vendor.Session, error) {
	if err := creds.Validate(VendorName); err != nil {
		return nil, err
	}
	session, err := vendor.NewSession(VendorName, a.httpOpts, a.logger)
	if err != nil {
		return nil, err
	}

	payload, err := json.Marshal(loginRequest{Login: creds.Login, Password: creds.Password})
	if err != nil {
		return nil, fmt.Errorf("failed to encode login payload: %w", err)
	}
	query := url.Values{"callbackJsonp": {a.callback()}, "d": {string(payload)}}

	a.logger.Info("Logging in on leclercdrive website")
	body, err := session.Send(ctx, vendor.Request{
		URL:     a.endpoints.LoginURL + "?" + query.Encode(),
		Headers: map[string]string{"Referer": a.endpoints.BaseURL},
	})
	if err != nil {
		return nil, err
	}

	match := jsonpPayload.FindSubmatch(body)
	if match == nil {
		return nil, &runerror.BadCredentialsError{Vendor: VendorName, Reason: "login answer carries no JSON payload"}
	}
	var resp loginResponse
	if err := json.Unmarshal(match[1], &resp); err != nil {
		return nil, &runerror.BadCredentialsError{Vendor: VendorName, Reason: "unreadable login answer: " + err.Error()}
	}
	if resp.Data == nil || resp.Data.CoursesURL == nil || resp.Data.ClientID == nil {
		return nil, &runerror.BadCredentialsError{Vendor: VendorName, Reason: "portal refused the credentials"}
	}

	session.Values[coursesURLKey] = *resp.Data.CoursesURL
	session.Values[clientIDKey] = string(*resp.Data.ClientID)
	a.logger.Info("Successfully logged in")
	return session, nil
}

// Fetch opens the shopping site, follows the account menu to the order
// history and returns that page.
func (a *Adapter) Fetch(ctx context.Context, session *vendor.Session) (*vendor.Document, error) {
	coursesURL, ok := session.Values[coursesURLKey]
	if !ok || coursesURL == "" {
		return nil, &runerror.FetchError{Vendor: VendorName, URL: "", Err: fmt.Errorf("session has no shopping URL")}
	}

	home, err := session.Get(ctx, coursesURL)
	if err != nil {
		return nil, err
	}
	historyURL, err := historyLink(coursesURL, home)
	if err != nil {
		return nil, err
	}

	body, err := session.Get(ctx, historyURL)
	if err != nil {
		return nil, err
	}
	a.logger.Info("Fetched order history", logging.F(logging.FieldURL, historyURL))
	return &vendor.Document{URL: historyURL, Body: body, FetchedAt: a.now()}, nil
}

func historyLink(pageURL string, page []byte) (string, error) {
	root, err := htmlutils.ParseHTML(page)
	if err != nil {
		return "", &runerror.ParseError{Vendor: VendorName, Field: "account menu", Value: pageURL, Err: err}
	}
	items, err := htmlutils.Nodes(root, accountLinksXPath)
	if err != nil {
		return "", &runerror.ParseError{Vendor: VendorName, Field: "account menu", Value: accountLinksXPath, Err: err}
	}
	if len(items) <= historyLinkIndex {
		return "", &runerror.ParseError{
			Vendor: VendorName,
			Field:  "account menu",
			Value:  pageURL,
			Err:    fmt.Errorf("expected at least %d entries, found %d", historyLinkIndex+1, len(items)),
		}
	}

	href, ok, err := htmlutils.First(items[historyLinkIndex], "a/@href")
	if err != nil || !ok {
		return "", &runerror.ParseError{Vendor: VendorName, Field: "history link", Value: pageURL, Err: fmt.Errorf("no link in menu entry")}
	}
	return vendor.Resolve(pageURL, href)
}

// Download fetches an order form within the authenticated session.
func (a *Adapter) Download(ctx context.Context, session *vendor.Session, documentURL string) ([]byte, error) {
	return session.Get(ctx, documentURL)
}

// Logout closes the portal session.
func (a *Adapter) Logout(ctx context.Context, session *vendor.Session) error {
	query := url.Values{"callbackJsonp": {a.callback()}, "d": {"undefined"}}
	_, err := session.Get(ctx, a.endpoints.LogoutURL+"?"+query.Encode())
	if err == nil {
		a.logger.Info("Successfully logged out")
	}
	return err
}
