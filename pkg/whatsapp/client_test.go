package whatsapp

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/url"
	"strings"
	"testing"

	"github.com/shopspring/decimal"

	"github.com/kiranaconnect/kiranaconnect-backend/pkg/config"
	pkgerrors "github.com/kiranaconnect/kiranaconnect-backend/pkg/errors"
)

type roundTripFunc func(*http.Request) (*http.Response, error)

func (f roundTripFunc) RoundTrip(req *http.Request) (*http.Response, error) {
	return f(req)
}

func testConfig() config.WhatsAppConfig {
	return config.WhatsAppConfig{
		AccountSID: "AC123",
		AuthToken:  "token",
		FromNumber: "+14155238886",
		BaseURL:    "http://twilio.test",
	}
}

func TestSendPostsFormToTwilio(t *testing.T) {
	var (
		capturedURL  string
		capturedForm url.Values
		user, pass   string
	)
	rt := roundTripFunc(func(req *http.Request) (*http.Response, error) {
		capturedURL = req.URL.String()
		user, pass, _ = req.BasicAuth()
		body, err := io.ReadAll(req.Body)
		if err != nil {
			t.Fatalf("read body: %v", err)
		}
		capturedForm, err = url.ParseQuery(string(body))
		if err != nil {
			t.Fatalf("parse form: %v", err)
		}
		return &http.Response{
			StatusCode: http.StatusCreated,
			Body:       io.NopCloser(strings.NewReader(`{"sid":"SM42"}`)),
			Header:     http.Header{},
		}, nil
	})

	client := NewClient(testConfig(), WithHTTPClient(&http.Client{Transport: rt}))
	sid, err := client.Send(context.Background(), "+919876543210", "hello")
	if err != nil {
		t.Fatalf("send: %v", err)
	}
	if sid != "SM42" {
		t.Fatalf("unexpected sid %q", sid)
	}
	if capturedURL != "http://twilio.test/2010-04-01/Accounts/AC123/Messages.json" {
		t.Fatalf("unexpected url %q", capturedURL)
	}
	if user != "AC123" || pass != "token" {
		t.Fatalf("unexpected basic auth %q:%q", user, pass)
	}
	if capturedForm.Get("From") != "whatsapp:+14155238886" || capturedForm.Get("To") != "whatsapp:+919876543210" {
		t.Fatalf("unexpected addressing %v", capturedForm)
	}
	if capturedForm.Get("Body") != "hello" {
		t.Fatalf("unexpected body %q", capturedForm.Get("Body"))
	}
}

func TestSendSurfacesUpstreamErrors(t *testing.T) {
	rt := roundTripFunc(func(req *http.Request) (*http.Response, error) {
		return &http.Response{
			StatusCode: http.StatusBadRequest,
			Body:       io.NopCloser(strings.NewReader(`{"code":21211,"message":"invalid To"}`)),
			Header:     http.Header{},
		}, nil
	})
	client := NewClient(testConfig(), WithHTTPClient(&http.Client{Transport: rt}))

	_, err := client.Send(context.Background(), "+91", "hello")
	if err == nil {
		t.Fatal("expected error")
	}
	if !pkgerrors.IsCode(err, pkgerrors.CodeDependency) {
		t.Fatalf("expected dependency error, got %v", err)
	}
}

func TestDisabledClientSkips(t *testing.T) {
	client := NewClient(config.WhatsAppConfig{})
	if client.Enabled() {
		t.Fatal("expected client without credentials to be disabled")
	}
	if _, err := client.Send(context.Background(), "+91", "hello"); !errors.Is(err, ErrDisabled) {
		t.Fatalf("expected ErrDisabled, got %v", err)
	}
}

func TestMessageTemplates(t *testing.T) {
	order := OrderSummary{
		ID:          "ord-1",
		TotalAmount: decimal.RequireFromString("450"),
		Status:      "pending",
		Items:       []OrderLine{{ProductName: "Basmati Rice", Label: "5kg", Quantity: 2}},
	}

	confirmation := OrderConfirmationMessage(order)
	for _, want := range []string{"Order ID: ord-1", "Total: ₹450.00", "- Basmati Rice (5kg) x2"} {
		if !strings.Contains(confirmation, want) {
			t.Fatalf("confirmation missing %q:\n%s", want, confirmation)
		}
	}

	order.Status = "shipped"
	if update := OrderStatusUpdateMessage(order); !strings.Contains(update, "Status: SHIPPED") {
		t.Fatalf("status update missing upper-cased status:\n%s", update)
	}

	alert := LowStockAlertMessage([]LowStockProduct{{Name: "Atta Flour", AvailableQuantity: 3}})
	if !strings.Contains(alert, "- Atta Flour: 3 left") {
		t.Fatalf("alert missing product line:\n%s", alert)
	}
}
