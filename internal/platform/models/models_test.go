package models

import (
	"reflect"
	"testing"
)

func TestFilterEvents(t *testing.T) {
	got := FilterEvents([]string{
		"newsletter.sent",
		"bogus.event",
		"newsletter.sent", // duplicate
		"source.processed",
		"",
	})
	want := []string{"newsletter.sent", "source.processed"}

	if !reflect.DeepEqual(got, want) {
		t.Errorf("FilterEvents() = %v, want %v", got, want)
	}
}

func TestFilterEventsAllUnknown(t *testing.T) {
	if got := FilterEvents([]string{"nope", "also.nope"}); len(got) != 0 {
		t.Errorf("Expected empty result, got %v", got)
	}
}

func TestFilterScopes(t *testing.T) {
	got := FilterScopes([]string{"events:publish", "root", "keys:manage"})
	want := []string{"events:publish", "keys:manage"}

	if !reflect.DeepEqual(got, want) {
		t.Errorf("FilterScopes() = %v, want %v", got, want)
	}
}

func TestSubscribedTo(t *testing.T) {
	endpoint := &WebhookEndpoint{Events: []string{"newsletter.sent", "newsletter.opened"}}

	if !endpoint.SubscribedTo("newsletter.sent") {
		t.Error("Expected subscription match")
	}
	if endpoint.SubscribedTo("source.processed") {
		t.Error("Unexpected subscription match")
	}
}
