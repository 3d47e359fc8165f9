package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"time"

	"github.com/alecthomas/kong"

	"github.com/wolfman30/clinic-scheduler/internal/appointments"
	"github.com/wolfman30/clinic-scheduler/internal/submission"
	"github.com/wolfman30/clinic-scheduler/pkg/logging"
)

var version = "dev"

// CLI is the top-level command structure for schedulectl.
type CLI struct {
	Version  kong.VersionFlag `help:"Show version." short:"V"`
	LogLevel string           `help:"Log level." default:"warn" env:"LOG_LEVEL"`
	Schedule ScheduleCmd      `cmd:"" help:"Submit an appointment to the scheduling service."`
}

// ScheduleCmd fills the scheduling form from flags and submits it once.
type ScheduleCmd struct {
	URL      string        `help:"Scheduling service base URL." default:"http://localhost:8080" env:"SCHEDULER_BASE_URL"`
	Timeout  time.Duration `help:"Request timeout." default:"15s" env:"SCHEDULER_TIMEOUT"`
	Name     string        `help:"Patient name." required:""`
	Time     string        `help:"Appointment time, e.g. 2030-03-04T14:30." required:""`
	Contact  string        `help:"Contact phone number." required:""`
	WhatsApp string        `help:"WhatsApp number." name:"whatsapp"`
	Email    string        `help:"Email address."`
	Channel  string        `help:"Preferred reminder channel." default:"sms" enum:"sms,whatsapp,email,voice"`
}

// Run submits the draft and prints the banner the form would show.
func (c *ScheduleCmd) Run(cli *CLI, out io.Writer) error {
	logger := logging.New(cli.LogLevel)
	client := submission.NewClient(submission.ClientConfig{
		BaseURL: c.URL,
		Timeout: c.Timeout,
		Logger:  logger,
	})

	flow := submission.NewFlow(client, logger)
	flow.Update(func(d *submission.Draft) {
		d.PatientName = c.Name
		d.AppointmentTime = c.Time
		d.ContactNumber = c.Contact
		d.WhatsAppNumber = c.WhatsApp
		d.EmailAddress = c.Email
		d.PreferredChannel = appointments.Channel(c.Channel)
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	result := flow.Submit(ctx)
	if result.Error != "" {
		return fmt.Errorf("%s", result.Error)
	}
	fmt.Fprintln(out, result.Success)
	return nil
}

func main() {
	var cli CLI
	kctx := kong.Parse(&cli,
		kong.Name("schedulectl"),
		kong.Description("Schedule clinic appointments from the command line."),
		kong.UsageOnError(),
		kong.Vars{"version": version},
		kong.BindTo(os.Stdout, (*io.Writer)(nil)),
	)
	kctx.FatalIfErrorf(kctx.Run(&cli))
}
