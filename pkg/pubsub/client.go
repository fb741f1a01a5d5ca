// Package pubsub wraps the Pub/Sub v2 client with the topic checks the
// outbox publisher relies on at startup and in readiness checks.
package pubsub

import (
	"context"
	"errors"
	"fmt"
	"strings"

	pubsub "cloud.google.com/go/pubsub/v2"
	"cloud.google.com/go/pubsub/v2/apiv1/pubsubpb"
	"golang.org/x/sync/errgroup"
	"google.golang.org/api/option"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/angelmondragon/swapmeet-backend/pkg/config"
	"github.com/angelmondragon/swapmeet-backend/pkg/logger"
)

var (
	errProjectIDRequired = errors.New("gcp project id is required")
	errNoTopics          = errors.New("at least one pubsub topic is required")
	errNotInitialized    = errors.New("pubsub client not initialized")
)

type Client struct {
	client *pubsub.Client
	topics []string
}

// NewClient dials Pub/Sub and fails unless every topic already exists.
// PUBSUB_EMULATOR_HOST is honoured by the underlying client.
func NewClient(ctx context.Context, gcp config.GCPConfig, topics []string, logg *logger.Logger) (*Client, error) {
	project := strings.TrimSpace(gcp.ProjectID)
	if project == "" {
		return nil, errProjectIDRequired
	}
	resources, err := resourceNames(project, topics)
	if err != nil {
		return nil, err
	}

	ps, err := pubsub.NewClient(ctx, project, clientOptions(gcp)...)
	if err != nil {
		return nil, fmt.Errorf("creating pubsub client: %w", err)
	}
	c := &Client{client: ps, topics: resources}
	if err := c.checkTopics(ctx); err != nil {
		_ = ps.Close()
		return nil, err
	}

	if logg != nil {
		logg.Info(logg.WithField(ctx, "topics", resources), "pubsub client initialized")
	}
	return c, nil
}

func clientOptions(gcp config.GCPConfig) []option.ClientOption {
	switch {
	case gcp.CredentialsJSON != "":
		return []option.ClientOption{option.WithCredentialsJSON([]byte(gcp.CredentialsJSON))}
	case gcp.ApplicationCredentials != "":
		return []option.ClientOption{option.WithCredentialsFile(gcp.ApplicationCredentials)}
	}
	return nil
}

// resourceNames expands short topic ids to full resource names, dropping
// blanks and duplicates.
func resourceNames(project string, topics []string) ([]string, error) {
	var out []string
	seen := map[string]bool{}
	for _, t := range topics {
		name := topicResourceName(project, t)
		if name == "" || seen[name] {
			continue
		}
		seen[name] = true
		out = append(out, name)
	}
	if len(out) == 0 {
		return nil, errNoTopics
	}
	return out, nil
}

func topicResourceName(projectID, name string) string {
	name = strings.TrimSpace(name)
	if strings.HasPrefix(name, "projects/") && strings.Contains(name, "/topics/") {
		return name
	}
	projectID = strings.TrimSpace(projectID)
	if name == "" || projectID == "" {
		return ""
	}
	return "projects/" + projectID + "/topics/" + name
}

func (c *Client) checkTopics(ctx context.Context) error {
	g, ctx := errgroup.WithContext(ctx)
	for _, name := range c.topics {
		g.Go(func() error {
			_, err := c.client.TopicAdminClient.GetTopic(ctx, &pubsubpb.GetTopicRequest{Topic: name})
			switch {
			case status.Code(err) == codes.NotFound:
				return fmt.Errorf("topic %q does not exist", name)
			case err != nil:
				return fmt.Errorf("checking topic %q: %w", name, err)
			}
			return nil
		})
	}
	return g.Wait()
}

// Publisher returns a handle for a configured topic, by short id or full
// resource name. Unknown topics get nil.
func (c *Client) Publisher(topic string) *pubsub.Publisher {
	if c == nil || c.client == nil {
		return nil
	}
	for _, name := range c.topics {
		if name == topic || strings.HasSuffix(name, "/topics/"+strings.TrimSpace(topic)) {
			return c.client.Publisher(name)
		}
	}
	return nil
}

func (c *Client) Ping(ctx context.Context) error {
	if c == nil || c.client == nil {
		return errNotInitialized
	}
	return c.checkTopics(ctx)
}

func (c *Client) Close() error {
	if c == nil || c.client == nil {
		return nil
	}
	return c.client.Close()
}
