package labels

import (
	"context"
	"fmt"

	vision "cloud.google.com/go/vision/v2/apiv1"
	visionpb "cloud.google.com/go/vision/v2/apiv1/visionpb"
	"google.golang.org/api/option"

	"nutrition-lens/internal/infrastructure/config"
)

// VisionProviderName Google Cloud Vision 供應者名稱
const VisionProviderName = "gcp-vision"

// VisionDetector Google Cloud Vision LABEL_DETECTION
type VisionDetector struct {
	client    *vision.ImageAnnotatorClient
	maxLabels int32
}

// NewVisionProvider 建立 Cloud Vision 標籤供應者
func NewVisionProvider(ctx context.Context, cfg *config.Config, isFood Matcher) (*Provider, error) {
	var opts []option.ClientOption
	if cfg.Vision.CredentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(cfg.Vision.CredentialsFile))
	}
	client, err := vision.NewImageAnnotatorClient(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("vision client: %w", err)
	}
	maxLabels := cfg.Vision.MaxLabels
	if maxLabels <= 0 {
		maxLabels = 10
	}
	det := &VisionDetector{client: client, maxLabels: maxLabels}
	return NewProvider(VisionProviderName, det, cfg.Vision.Timeout, isFood), nil
}

// DetectLabels 實作 Detector
func (d *VisionDetector) DetectLabels(ctx context.Context, image []byte) ([]Label, error) {
	req := &visionpb.BatchAnnotateImagesRequest{
		Requests: []*visionpb.AnnotateImageRequest{
			{
				Image: &visionpb.Image{Content: image},
				Features: []*visionpb.Feature{
					{Type: visionpb.Feature_LABEL_DETECTION, MaxResults: d.maxLabels},
				},
			},
		},
	}
	resp, err := d.client.BatchAnnotateImages(ctx, req)
	if err != nil {
		return nil, err
	}
	if resp == nil || len(resp.Responses) == 0 {
		return nil, nil
	}
	r := resp.Responses[0]
	if r.Error != nil && r.Error.Message != "" {
		return nil, fmt.Errorf("vision label detection: %s", r.Error.Message)
	}

	out := make([]Label, 0, len(r.LabelAnnotations))
	for _, a := range r.LabelAnnotations {
		if a == nil {
			continue
		}
		out = append(out, Label{Name: a.Description, Score: float64(a.Score)})
	}
	return out, nil
}

// Close 關閉客戶端
func (d *VisionDetector) Close() error {
	return d.client.Close()
}
