package progress

import "sync"

var messages = map[int]string{
	20:  "✅ Onboarding document has been completed and reviewed.",
	40:  "✅ Mailboxes are now warming up to ensure optimal deliverability.",
	60:  "✅ Email templates have been created and are ready for your review and approval.",
	80:  "✅ Sample prospect list has been created and validated.",
	100: "🚀 Campaigns are now live! Your outreach is actively running.",
}

// Notification announces that progress reached a step threshold.
type Notification struct {
	Threshold int    `json:"threshold"`
	StepKey   string `json:"step_key"`
	Message   string `json:"message"`
}

// Notifier emits one Notification per threshold the first time progress
// reaches it. A threshold is never announced twice, even if progress later
// drops below it and climbs back.
type Notifier struct {
	mu       sync.Mutex
	notified map[int]bool
}

func NewNotifier() *Notifier {
	return &Notifier{notified: make(map[int]bool)}
}

// Observe returns the notifications for thresholds newly reached at
// progress, in increasing threshold order. Progress 0 announces nothing.
func (n *Notifier) Observe(progress int) []Notification {
	if progress <= 0 {
		return nil
	}

	n.mu.Lock()
	defer n.mu.Unlock()

	var out []Notification
	for _, s := range steps {
		if progress < s.Threshold || n.notified[s.Threshold] {
			continue
		}
		n.notified[s.Threshold] = true
		out = append(out, Notification{
			Threshold: s.Threshold,
			StepKey:   s.Key,
			Message:   messages[s.Threshold],
		})
	}
	return out
}
