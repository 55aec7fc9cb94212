package sessionhub

import (
	"testing"

	"socialcore/internal/model"
)

func TestSubscriptionAllowed(t *testing.T) {
	self := &Session{actorID: 7}
	other := &Session{actorID: 9}

	tests := []struct {
		name  string
		s     *Session
		topic model.Topic
		want  bool
	}{
		{"global posts topic always allowed", self, model.TopicPosts, true},
		{"post comments topic always allowed", self, model.TopicPostComments(100), true},
		{"comment replies topic always allowed", self, model.TopicCommentReplies(200), true},
		{"own notification topic allowed", self, model.TopicUserNotifications(7), true},
		{"another user's notification topic forbidden", other, model.TopicUserNotifications(7), false},
		{"unknown topic shape forbidden", self, model.Topic("something:else"), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.s.subscriptionAllowed(tt.topic); got != tt.want {
				t.Errorf("subscriptionAllowed(%q) = %v, want %v", tt.topic, got, tt.want)
			}
		})
	}
}
