package bgremove

import (
	"context"
	"encoding/base64"
	"fmt"
	"strings"

	aiplatform "cloud.google.com/go/aiplatform/apiv1"
	"cloud.google.com/go/aiplatform/apiv1/aiplatformpb"
	"google.golang.org/api/option"
	"google.golang.org/protobuf/types/known/structpb"
)

// VertexConfig describes how to connect to the Vertex AI image editor.
type VertexConfig struct {
	ProjectID          string
	Location           string
	Model              string
	APIKey             string
	ServiceAccount     string
	ServiceAccountJSON string
}

// VertexRemover removes backgrounds through the Vertex AI image editing
// endpoint.
type VertexRemover struct {
	projectID          string
	location           string
	model              string
	apiKey             string
	serviceAccount     string
	serviceAccountJSON string
}

// NewVertex wires a Vertex remover, or nil when the config is incomplete.
func NewVertex(cfg VertexConfig) *VertexRemover {
	remover := &VertexRemover{
		projectID:          strings.TrimSpace(cfg.ProjectID),
		location:           strings.TrimSpace(cfg.Location),
		model:              strings.TrimSpace(cfg.Model),
		apiKey:             strings.TrimSpace(cfg.APIKey),
		serviceAccount:     strings.TrimSpace(cfg.ServiceAccount),
		serviceAccountJSON: strings.TrimSpace(cfg.ServiceAccountJSON),
	}
	if remover.projectID == "" || remover.location == "" {
		return nil
	}
	if remover.model == "" {
		remover.model = "imagegeneration@006"
	}
	return remover
}

func (v *VertexRemover) Remove(ctx context.Context, photo []byte) ([]byte, error) {
	if v == nil {
		return nil, ErrUnavailable
	}
	if len(photo) == 0 {
		return nil, fmt.Errorf("bgremove: empty image")
	}

	instance, err := structpb.NewValue(map[string]any{
		"prompt": "Remove the background completely. Keep the product with a fully transparent background.",
		"image": map[string]any{
			"bytesBase64Encoded": base64.StdEncoding.EncodeToString(photo),
		},
	})
	if err != nil {
		return nil, err
	}

	params, err := structpb.NewValue(map[string]any{
		"sampleCount": 1,
		"editConfig": map[string]any{
			"editMode": "product-image",
		},
	})
	if err != nil {
		return nil, err
	}

	endpoint := fmt.Sprintf("projects/%s/locations/%s/publishers/google/models/%s", v.projectID, v.location, v.model)
	options := []option.ClientOption{option.WithEndpoint(fmt.Sprintf("%s-aiplatform.googleapis.com:443", v.location))}
	if v.serviceAccountJSON != "" {
		options = append(options, option.WithCredentialsJSON([]byte(v.serviceAccountJSON)))
	} else if v.serviceAccount != "" {
		options = append(options, option.WithCredentialsFile(v.serviceAccount))
	} else if v.apiKey != "" {
		options = append(options, option.WithAPIKey(v.apiKey))
	}

	client, err := aiplatform.NewPredictionClient(ctx, options...)
	if err != nil {
		return nil, fmt.Errorf("bgremove: prediction client: %w", err)
	}
	defer client.Close()

	resp, err := client.Predict(ctx, &aiplatformpb.PredictRequest{
		Endpoint:   endpoint,
		Instances:  []*structpb.Value{instance},
		Parameters: params,
	})
	if err != nil {
		return nil, fmt.Errorf("bgremove: predict: %w", err)
	}
	if len(resp.Predictions) == 0 {
		return nil, fmt.Errorf("bgremove: empty prediction response")
	}

	field := resp.Predictions[0].GetStructValue().GetFields()["bytesBase64Encoded"]
	if field == nil {
		return nil, fmt.Errorf("bgremove: prediction missing bytes")
	}

	data, err := base64.StdEncoding.DecodeString(field.GetStringValue())
	if err != nil {
		return nil, fmt.Errorf("bgremove: decode result: %w", err)
	}
	return data, nil
}
