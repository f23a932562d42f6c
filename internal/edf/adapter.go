// Package edf implements the vendor adapter for the EDF customer portal.
package edf

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"regexp"
	"time"

	"github.com/SomeAverageDev/konnectors/internal/logging"
	"github.com/SomeAverageDev/konnectors/internal/runerror"
	"github.com/SomeAverageDev/konnectors/internal/vendor"
)

const (
	VendorName     = "edf"
	BillType       = "energy"
	DefaultBaseURL = "https://particulier.edf.fr"

	billingURLKey = "billing_url"
)

var authenticationOK = regexp.MustCompile(`Authentication OK`)

// Endpoints are the portal URLs used by the adapter.
type Endpoints struct {
	BaseURL string
	Login   string
	Billing string
	Logout  string
	// PDF is the document URL prefix; the bill reference is appended.
	PDF string
	// Referer sent with the login call.
	LoginReferer string
}

// DefaultEndpoints derives every endpoint from the portal base URL.
func DefaultEndpoints(baseURL string) Endpoints {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return Endpoints{
		BaseURL:      baseURL,
		Login:        baseURL + "/bin/edf_rc/servlets/authentication",
		Billing:      baseURL + "/bin/edf_rc/servlets/edfSasServlet?service=page_mes_factures",
		Logout:       baseURL + "/content/EDF_RC/fr/accueil/connexion/deconnexion/aeldeconnexion.html",
		PDF:          baseURL + "/ASPFront/com/edf/asp/portlets/generationpdf/getFacturePDF.do?numFact=",
		LoginReferer: baseURL + "/fr/accueil/facture-et-contrat/facture/consulter-et-payer-ma-facture/login.html",
	}
}

// Adapter talks to the EDF portal.
type Adapter struct {
	endpoints Endpoints
	httpOpts  vendor.HTTPOptions
	logger    logging.Logger
}

// New creates an EDF adapter.
func New(endpoints Endpoints, httpOpts vendor.HTTPOptions, logger logging.Logger) *Adapter {
	return &Adapter{
		endpoints: endpoints,
		httpOpts:  httpOpts,
		logger:    logging.OrDefault(logger).WithField(logging.FieldVendor, VendorName),
	}
}

func (a *Adapter) Name() string { return VendorName }

type loginResponse struct {
	ErrorLabel  string `json:"errorLabel"`
	URLRedirect string `json:"urlRedirect"`
}

// Login posts the credentials to the authentication servlet. The portal
// answers 200 in every case; only an errorLabel reading "Authentication OK"
// means the session is open.
func (a *Adapter) Login(ctx context.Context, creds vendor.Credentials) (*vendor.Session, error) {
	if err := creds.Validate(VendorName); err != nil {
		return nil, err
	}
	session, err := vendor.NewSession(VendorName, a.httpOpts, a.logger)
	if err != nil {
		return nil, err
	}

	a.logger.Info("Logging in on EDF website")
	body, err := session.Send(ctx, vendor.Request{
		Method: "POST",
		URL:    a.endpoints.Login,
		Form: url.Values{
			"login":      {creds.Login},
			"password":   {creds.Password},
			"rememberMe": {"false"},
			"goto":       {""},
		},
		Headers: map[string]string{
			"X-Requested-With": "XMLHttpRequest",
			"Referer":          a.endpoints.LoginReferer,
		},
	})
	if err != nil {
		return nil, err
	}

	var resp loginResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, &runerror.FetchError{
			Vendor: VendorName,
			URL:    a.endpoints.Login,
			Err:    fmt.Errorf("unexpected login response: %w", err),
		}
	}
	if !authenticationOK.MatchString(resp.ErrorLabel) {
		return nil, &runerror.BadCredentialsError{Vendor: VendorName, Reason: resp.ErrorLabel}
	}

	if resp.URLRedirect != "" {
		next, err := vendor.Resolve(a.endpoints.BaseURL, resp.URLRedirect)
		if err == nil {
			session.Values[billingURLKey] = next
		}
	}
	a.logger.Info("Successfully logged in")
	return session, nil
}

// Fetch downloads the billing page.
func (a *Adapter) Fetch(ctx context.Context, session *vendor.Session) (*vendor.Document, error) {
	target := a.endpoints.Billing
	if next, ok := session.Values[billingURLKey]; ok {
		target = next
	}

	body, err := session.Send(ctx, vendor.Request{
		URL:     target,
		Headers: map[string]string{"Referer": a.endpoints.BaseURL + "/fr/accueil/espace-client/tableau-de-bord.html"},
	})
	if err != nil {
		return nil, err
	}
	a.logger.Info("Fetched billing page", logging.F(logging.FieldURL, target))
	return &vendor.Document{URL: target, Body: body, FetchedAt: time.Now()}, nil
}

// Download fetches a bill document within the authenticated session.
func (a *Adapter) Download(ctx context.Context, session *vendor.Session, documentURL string) ([]byte, error) {
	return session.Get(ctx, documentURL)
}

// Logout closes the portal session.
func (a *Adapter) Logout(ctx context.Context, session *vendor.Session) error {
	_, err := session.Get(ctx, a.endpoints.Logout)
	if err == nil {
		a.logger.Info("Logged out")
	}
	return err
}
