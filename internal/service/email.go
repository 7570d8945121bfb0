package service

import (
	"context"
	"fmt"

	appconfig "TrackerSync/internal/config"
	"TrackerSync/internal/model"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/sesv2"
	"github.com/aws/aws-sdk-go-v2/service/sesv2/types"
	"github.com/sirupsen/logrus"
)

// EmailService 通过 Amazon SES 发送提醒/欢迎邮件。
// 未配置发件地址时整体禁用，所有发送调用直接跳过，保证主流程不依赖邮件可用性。
type EmailService struct {
	client      *sesv2.Client
	fromEmail   string
	fromName    string
	frontendURL string
	enabled     bool
	logger      *logrus.Logger
}

func NewEmailService(ctx context.Context, cfg *appconfig.EmailConfig, logger *logrus.Logger) (*EmailService, error) {
	if cfg.From == "" {
		logger.Info("邮件服务未配置发件地址，已禁用")
		return &EmailService{enabled: false, logger: logger}, nil
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(cfg.Region))
	if err != nil {
		return nil, fmt.Errorf("加载AWS配置失败: %w", err)
	}

	logger.Infof("邮件服务已启用：from=%s, region=%s", cfg.From, cfg.Region)
	return &EmailService{
		client:      sesv2.NewFromConfig(awsCfg),
		fromEmail:   cfg.From,
		fromName:    cfg.FromName,
		frontendURL: cfg.FrontendURL,
		enabled:     true,
		logger:      logger,
	}, nil
}

// IsEnabled 邮件服务是否可用
func (s *EmailService) IsEnabled() bool { return s.enabled }

// SendReminderEmail 发送连续多日无提交的提醒邮件
func (s *EmailService) SendReminderEmail(ctx context.Context, student *model.Student, inactiveDays int) error {
	subject := "Keep Up Your Coding Practice!"
	body := fmt.Sprintf(`
<div style="font-family: Arial, sans-serif; max-width: 600px; margin: 0 auto;">
  <h2>Hi %s,</h2>
  <p>We noticed you haven't submitted any problems on Codeforces in the last %d days.</p>
  <p>Regular practice is key to improving your problem-solving skills.</p>
  <p><a href="https://codeforces.com/problemset">Solve Problems Now</a></p>
  <p style="color: #7f8c8d;">You can disable these reminders in your student profile settings.</p>
</div>`, student.Name, inactiveDays)
	return s.send(ctx, student.Email, subject, body)
}

// SendWelcomeEmail 新学生入册欢迎邮件
func (s *EmailService) SendWelcomeEmail(ctx context.Context, student *model.Student) error {
	subject := "Welcome to Student Progress Tracker"
	body := fmt.Sprintf(`
<div style="font-family: Arial, sans-serif; max-width: 600px; margin: 0 auto;">
  <h2>Welcome, %s!</h2>
  <p>Your Codeforces progress (handle: %s) will now be tracked automatically.</p>
  <p><a href="%s">View Your Dashboard</a></p>
</div>`, student.Name, student.CodeforcesHandle, s.frontendURL)
	return s.send(ctx, student.Email, subject, body)
}

func (s *EmailService) send(ctx context.Context, to, subject, htmlBody string) error {
	if !s.enabled {
		s.logger.Debugf("邮件服务禁用，跳过发送: %s -> %s", subject, to)
		return nil
	}
	if to == "" {
		return nil
	}

	from := s.fromEmail
	if s.fromName != "" {
		from = fmt.Sprintf("%s <%s>", s.fromName, s.fromEmail)
	}

	_, err := s.client.SendEmail(ctx, &sesv2.SendEmailInput{
		FromEmailAddress: aws.String(from),
		Destination: &types.Destination{
			ToAddresses: []string{to},
		},
		Content: &types.EmailContent{
			Simple: &types.Message{
				Subject: &types.Content{Data: aws.String(subject)},
				Body: &types.Body{
					Html: &types.Content{Data: aws.String(htmlBody)},
				},
			},
		},
	})
	if err != nil {
		return fmt.Errorf("发送邮件到 %s 失败: %w", to, err)
	}
	s.logger.Infof("邮件已发送: %s -> %s", subject, to)
	return nil
}
