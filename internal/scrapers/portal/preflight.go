package portal

import (
	"context"
	"filingscraper/lib/telemetry"
	"fmt"
	"time"

	cloudflarebp "github.com/DaRealFreak/cloudflare-bp-go"
	"github.com/go-resty/resty/v2"
)

// UserAgent is presented to the portal by both the preflight check and the browser.
const UserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/123.0.0.0 Safari/537.36"

// Preflight checks that the portal answers before a browser is started for
// it, any server error or transport failure is returned.
func Preflight(ctx context.Context, portalURL string, tel telemetry.API) error {
	ctx, span := tracer.Start(ctx, "Preflight")
	defer span.End()

	client := resty.New()
	client.GetClient().Transport = cloudflarebp.AddCloudFlareByPass(client.GetClient().Transport)
	client.SetHeader("user-agent", UserAgent)
	client.SetTimeout(time.Second * 30)
	telemetry.InstrumentResty(client, tel)

	res, err := client.R().
		SetContext(ctx).
		Get(portalURL)
	if err != nil {
		return fmt.Errorf("portal unreachable: %w", err)
	}
	if res.StatusCode() >= 500 {
		return fmt.Errorf("portal unavailable: %s", res.Status())
	}
	tel.ReportDebug("portal preflight", res.Status())
	return nil
}
