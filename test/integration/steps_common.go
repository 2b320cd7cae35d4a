package integration

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/cucumber/godog"
)

const defaultPassword = "ValidPass123!"

// StepsContext holds state shared between step definitions
type StepsContext struct {
	tc           *TestContext
	response     *http.Response
	responseBody []byte
	current      string
	tokens       map[string]string
	services     map[string]uint
	credentials  map[string]uint
}

// NewStepsContext creates a new steps context
func NewStepsContext(tc *TestContext) *StepsContext {
	return &StepsContext{
		tc:          tc,
		tokens:      make(map[string]string),
		services:    make(map[string]uint),
		credentials: make(map[string]uint),
	}
}

// RegisterSteps registers all step definitions
func (s *StepsContext) RegisterSteps(sc *godog.ScenarioContext) {
	sc.Step(`^a credvault server is running$`, s.aServerIsRunning)

	// Identity
	sc.Step(`^I register "([^"]*)" with passwords "([^"]*)" and "([^"]*)"$`, s.iRegister)
	sc.Step(`^I log in as "([^"]*)" with password "([^"]*)"$`, s.iLogIn)
	sc.Step(`^a user "([^"]*)" exists$`, s.aUserExists)
	sc.Step(`^"([^"]*)" is staff$`, s.userIsStaff)
	sc.Step(`^I am "([^"]*)"$`, s.iAm)
	sc.Step(`^I should receive a bearer token$`, s.iShouldReceiveABearerToken)

	// Credentials
	sc.Step(`^a service "([^"]*)" exists$`, s.aServiceExists)
	sc.Step(`^I create a credential "([^"]*)" for service "([^"]*)" with password "([^"]*)"$`, s.iCreateCredential)
	sc.Step(`^I fetch the credential "([^"]*)"$`, s.iFetchCredential)
	sc.Step(`^I list credentials$`, s.iListCredentials)
	sc.Step(`^I grant "([^"]*)" access to the credential "([^"]*)"$`, s.iGrantAccess)
	sc.Step(`^I revoke "([^"]*)" access to the credential "([^"]*)"$`, s.iRevokeAccess)
	sc.Step(`^the stored password of "([^"]*)" should not contain "([^"]*)"$`, s.storedPasswordShouldNotContain)
	sc.Step(`^the credential "([^"]*)" should have (\d+) access log entries$`, s.credentialShouldHaveAccessLogs)

	// Response
	sc.Step(`^the response status should be (\d+)$`, s.theResponseStatusShouldBe)
	sc.Step(`^the response field "([^"]*)" should be "([^"]*)"$`, s.theResponseFieldShouldBe)
	sc.Step(`^the response should list (\d+) credentials?$`, s.theResponseShouldList)
}

func (s *StepsContext) aServerIsRunning() error {
	return nil
}

func (s *StepsContext) do(method, path string, body interface{}) error {
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			return err
		}
	}
	req, err := http.NewRequest(method, s.tc.ServerURL+path, &buf)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	if tok := s.tokens[s.current]; tok != "" {
		req.Header.Set("Authorization", "Bearer "+tok)
	}

	s.response, err = s.tc.HTTPClient.Do(req)
	if err != nil {
		return err
	}
	s.responseBody, err = io.ReadAll(s.response.Body)
	_ = s.response.Body.Close()
	return err
}

func (s *StepsContext) captureToken(username string) {
	if s.response.StatusCode != http.StatusOK && s.response.StatusCode != http.StatusCreated {
		return
	}
	var body struct {
		Token struct {
			AccessToken string `json:"access_token"`
		} `json:"token"`
	}
	if err := json.Unmarshal(s.responseBody, &body); err == nil && body.Token.AccessToken != "" {
		s.tokens[username] = body.Token.AccessToken
		s.current = username
	}
}

// Identity steps

func (s *StepsContext) iRegister(username, password1, password2 string) error {
	s.current = ""
	if err := s.do("POST", "/register/", map[string]string{
		"username":  username,
		"email":     username + "@example.com",
		"password1": password1,
		"password2": password2,
	}); err != nil {
		return err
	}
	s.captureToken(username)
	return nil
}

func (s *StepsContext) iLogIn(username, password string) error {
	s.current = ""
	if err := s.do("POST", "/login/", map[string]string{
		"username": username,
		"password": password,
	}); err != nil {
		return err
	}
	s.captureToken(username)
	return nil
}

func (s *StepsContext) aUserExists(username string) error {
	if err := s.iRegister(username, defaultPassword, defaultPassword); err != nil {
		return err
	}
	if s.response.StatusCode == http.StatusForbidden {
		return s.iLogIn(username, defaultPassword)
	}
	if s.response.StatusCode != http.StatusOK {
		return fmt.Errorf("registering %s: %d %s", username, s.response.StatusCode, s.responseBody)
	}
	return nil
}

func (s *StepsContext) userIsStaff(username string) error {
	return s.tc.DB.Exec(`UPDATE users SET is_staff = true WHERE username = ?`, username).Error
}

func (s *StepsContext) iAm(username string) error {
	if _, ok := s.tokens[username]; !ok {
		if err := s.aUserExists(username); err != nil {
			return err
		}
	}
	s.current = username
	return nil
}

func (s *StepsContext) iShouldReceiveABearerToken() error {
	var body struct {
		Token struct {
			AccessToken string `json:"access_token"`
			TokenType   string `json:"token_type"`
		} `json:"token"`
	}
	if err := json.Unmarshal(s.responseBody, &body); err != nil {
		return fmt.Errorf("response is not a token: %w", err)
	}
	if body.Token.AccessToken == "" || body.Token.TokenType != "bearer" {
		return fmt.Errorf("unexpected token response: %s", s.responseBody)
	}
	return nil
}

// Credential steps

func (s *StepsContext) aServiceExists(name string) error {
	if _, ok := s.services[name]; ok {
		return nil
	}
	if err := s.do("POST", "/services/", map[string]string{"name": name}); err != nil {
		return err
	}
	if s.response.StatusCode != http.StatusCreated {
		return fmt.Errorf("creating service %s: %d %s", name, s.response.StatusCode, s.responseBody)
	}
	var svc struct {
		ID uint `json:"id"`
	}
	if err := json.Unmarshal(s.responseBody, &svc); err != nil {
		return err
	}
	s.services[name] = svc.ID
	return nil
}

func (s *StepsContext) iCreateCredential(name, service, password string) error {
	if err := s.do("POST", "/credentials/create/", map[string]interface{}{
		"name":     name,
		"service":  s.services[service],
		"password": password,
	}); err != nil {
		return err
	}
	if s.response.StatusCode == http.StatusCreated {
		var cred struct {
			ID uint `json:"id"`
		}
		if err := json.Unmarshal(s.responseBody, &cred); err != nil {
			return err
		}
		s.credentials[name] = cred.ID
	}
	return nil
}

func (s *StepsContext) credentialID(name string) (uint, error) {
	id, ok := s.credentials[name]
	if !ok {
		return 0, fmt.Errorf("credential %q was never created", name)
	}
	return id, nil
}

func (s *StepsContext) iFetchCredential(name string) error {
	id, err := s.credentialID(name)
	if err != nil {
		return err
	}
	return s.do("GET", fmt.Sprintf("/credentials/%d/", id), nil)
}

func (s *StepsContext) iListCredentials() error {
	return s.do("GET", "/credentials/", nil)
}

func (s *StepsContext) grant(action, username, name string) error {
	id, err := s.credentialID(name)
	if err != nil {
		return err
	}
	var userID uint
	if err := s.tc.DB.Raw(`SELECT id FROM users WHERE username = ?`, username).Scan(&userID).Error; err != nil {
		return err
	}
	return s.do("POST", fmt.Sprintf("/credentials/%d/%s/", id, action), map[string]uint{"user_id": userID})
}

func (s *StepsContext) iGrantAccess(username, name string) error {
	return s.grant("grant-access", username, name)
}

func (s *StepsContext) iRevokeAccess(username, name string) error {
	return s.grant("revoke-access", username, name)
}

func (s *StepsContext) storedPasswordShouldNotContain(name, plaintext string) error {
	id, err := s.credentialID(name)
	if err != nil {
		return err
	}
	var stored string
	if err := s.tc.DB.Raw(`SELECT password FROM credentials WHERE id = ?`, id).Scan(&stored).Error; err != nil {
		return err
	}
	if stored == "" || strings.Contains(stored, plaintext) {
		return fmt.Errorf("stored password %q leaks plaintext", stored)
	}
	return nil
}

// credentialShouldHaveAccessLogs waits for the notifier, which records reads
// off the request path.
func (s *StepsContext) credentialShouldHaveAccessLogs(name string, want int) error {
	id, err := s.credentialID(name)
	if err != nil {
		return err
	}

	b := backoff.NewExponentialBackOff()
	b.InitialInterval = 50 * time.Millisecond
	b.MaxElapsedTime = 5 * time.Second

	return backoff.Retry(func() error {
		var got int64
		if err := s.tc.DB.Raw(`SELECT COUNT(*) FROM access_logs WHERE credential_id = ?`, id).Scan(&got).Error; err != nil {
			return backoff.Permanent(err)
		}
		if int(got) != want {
			return fmt.Errorf("expected %d access log entries, got %d", want, got)
		}
		return nil
	}, b)
}

// Response steps

func (s *StepsContext) theResponseStatusShouldBe(status int) error {
	if s.response == nil {
		return fmt.Errorf("no response")
	}
	if s.response.StatusCode != status {
		return fmt.Errorf("expected status %d, got %d: %s", status, s.response.StatusCode, s.responseBody)
	}
	return nil
}

func (s *StepsContext) theResponseFieldShouldBe(field, want string) error {
	var body map[string]interface{}
	if err := json.Unmarshal(s.responseBody, &body); err != nil {
		return fmt.Errorf("response is not an object: %w", err)
	}
	got := fmt.Sprint(body[field])
	if got != want {
		return fmt.Errorf("expected %s=%q, got %q", field, want, got)
	}
	return nil
}

func (s *StepsContext) theResponseShouldList(n int) error {
	var items []json.RawMessage
	if err := json.Unmarshal(s.responseBody, &items); err != nil {
		return fmt.Errorf("response is not a list: %w", err)
	}
	if len(items) != n {
		return fmt.Errorf("expected %d credentials, got %d", n, len(items))
	}
	return nil
}
