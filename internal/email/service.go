package email

import (
	"context"
	"encoding/json"
	"fmt"
	"net/smtp"
	"time"

	"github.com/redis/go-redis/v9"

	"clubhub/internal/logger"
	"clubhub/internal/metrics"
)

const (
	queueKey  = "emails"
	failedKey = "emails:failed"
)

type EmailJob struct {
	To      string    `json:"to"`
	Name    string    `json:"name"`
	Type    string    `json:"type"`
	Subject string    `json:"subject"`
	Body    string    `json:"body"`
	Tries   int       `json:"tries"`
	Created time.Time `json:"created"`
}

// Service queues notification emails on a Redis list and drains it from a
// worker goroutine, so request handlers never block on SMTP.
type Service struct {
	redis    *redis.Client
	from     string
	fromName string
	smtpHost string
	smtpPort string
	smtpUser string
	smtpPass string
}

func New(fromEmail, fromName, smtpHost, smtpPort, smtpUser, smtpPass, redisAddr string) *Service {
	return &Service{
		redis: redis.NewClient(&redis.Options{
			Addr: redisAddr,
		}),
		from:     fromEmail,
		fromName: fromName,
		smtpHost: smtpHost,
		smtpPort: smtpPort,
		smtpUser: smtpUser,
		smtpPass: smtpPass,
	}
}

func (s *Service) Send(ctx context.Context, to, name, emailType, subject, body string) error {
	job := EmailJob{
		To:      to,
		Name:    name,
		Type:    emailType,
		Subject: subject,
		Body:    body,
		Created: time.Now(),
	}

	data, err := json.Marshal(job)
	if err != nil {
		logger.Errorf("Failed to marshal email job: %v", err)
		return err
	}

	if err := s.redis.LPush(ctx, queueKey, data).Err(); err != nil {
		logger.Errorf("Failed to queue email to %s: %v", to, err)
		return err
	}

	logger.Infof("Email queued: %s to %s", subject, to)
	return nil
}

func (s *Service) Start(ctx context.Context) {
	logger.Info("Email service started")

	for {
		select {
		case <-ctx.Done():
			logger.Info("Email service stopped")
			return
		default:
			s.processNext(ctx)
		}
	}
}

func (s *Service) processNext(ctx context.Context) {
	result, err := s.redis.BRPop(ctx, 2*time.Second, queueKey).Result()
	if err != nil {
		return
	}
	metrics.EmailQueueLength.Set(float64(s.QueueLength(ctx)))

	var job EmailJob
	if err := json.Unmarshal([]byte(result[1]), &job); err != nil {
		logger.Errorf("Bad email data: %v", err)
		return
	}

	job.Tries++
	if err := s.sendNow(job); err != nil {
		logger.Errorf("Failed to send email to %s: %v", job.To, err)

		if job.Tries < 3 {
			time.Sleep(5 * time.Second)
			data, _ := json.Marshal(job)
			s.redis.LPush(context.Background(), queueKey, data)
			logger.Infof("Retrying email to %s (attempt %d)", job.To, job.Tries+1)
		} else {
			metrics.RecordEmail(job.Type, "failed")
			s.saveFailed(job, err)
		}
		return
	}

	metrics.RecordEmail(job.Type, "success")
	logger.Infof("Email sent successfully to %s", job.To)
}

func (s *Service) sendNow(job EmailJob) error {
	message := fmt.Sprintf("From: %s <%s>\r\n", s.fromName, s.from)
	message += fmt.Sprintf("To: %s\r\n", job.To)
	message += fmt.Sprintf("Subject: %s\r\n", job.Subject)
	message += "\r\n" + job.Body

	var auth smtp.Auth
	if s.smtpUser != "" && s.smtpPass != "" {
		auth = smtp.PlainAuth("", s.smtpUser, s.smtpPass, s.smtpHost)
	}

	addr := s.smtpHost + ":" + s.smtpPort
	return smtp.SendMail(addr, auth, s.from, []string{job.To}, []byte(message))
}

func (s *Service) saveFailed(job EmailJob, err error) {
	failed := map[string]interface{}{
		"job":   job,
		"error": err.Error(),
		"time":  time.Now(),
	}
	data, _ := json.Marshal(failed)
	s.redis.LPush(context.Background(), failedKey, data)
	logger.Errorf("Email moved to failed queue: %s", job.To)
}

func (s *Service) QueueLength(ctx context.Context) int64 {
	length, _ := s.redis.LLen(ctx, queueKey).Result()
	return length
}

func (s *Service) Close() error {
	return s.redis.Close()
}

func (s *Service) SendPurchaseProcessed(ctx context.Context, to, name, packageName string, approved bool, coinsGranted int64, adminNotes string) error {
	if approved {
		body := fmt.Sprintf(`Hi %s,

Your coin purchase has been approved!

Package: %s
Coins credited: %d

The coins are already in your wallet.

- ClubHub Team`, name, packageName, coinsGranted)
		return s.Send(ctx, to, name, "purchase_processed", "Coin Purchase Approved - "+packageName, body)
	}

	body := fmt.Sprintf(`Hi %s,

Unfortunately your coin purchase request was rejected.

Package: %s
Reason: %s

If you believe this is a mistake, please submit a new request with updated payment details.

- ClubHub Team`, name, packageName, adminNotes)
	return s.Send(ctx, to, name, "purchase_processed", "Coin Purchase Rejected - "+packageName, body)
}

func (s *Service) SendRSVPConfirmation(ctx context.Context, to, name, eventTitle, clubName string, when time.Time) error {
	subject := "RSVP Confirmed - " + eventTitle
	body := fmt.Sprintf(`Hi %s,

You're in! Your RSVP is confirmed.

Event: %s
Club: %s
Time: %s

See you on the court!

- ClubHub Team`, name, eventTitle, clubName, when.Format("Jan 2, 2006 at 3:04 PM"))

	return s.Send(ctx, to, name, "rsvp_confirmation", subject, body)
}

func (s *Service) SendJoinRequestResult(ctx context.Context, to, name, clubName string, approved bool) error {
	if approved {
		subject := "Welcome to " + clubName
		body := fmt.Sprintf(`Hi %s,

Your request to join %s has been approved. Welcome aboard!

- ClubHub Team`, name, clubName)
		return s.Send(ctx, to, name, "join_request", subject, body)
	}

	subject := "Join Request Update - " + clubName
	body := fmt.Sprintf(`Hi %s,

Your request to join %s was declined by the club organizers.

- ClubHub Team`, name, clubName)
	return s.Send(ctx, to, name, "join_request", subject, body)
}
