package transcription

import (
	"context"

	speech "cloud.google.com/go/speech/apiv1"
	"cloud.google.com/go/speech/apiv1/speechpb"
)

type gcpRecognizer struct {
	client *speech.Client
}

func (g *gcpRecognizer) LongRunningRecognize(ctx context.Context, req *speechpb.LongRunningRecognizeRequest) (operation, error) {
	op, err := g.client.LongRunningRecognize(ctx, req)
	if err != nil {
		return nil, err
	}
	return &gcpOperation{op: op}, nil
}

func (g *gcpRecognizer) Close() error {
	return g.client.Close()
}

type gcpOperation struct {
	op *speech.LongRunningRecognizeOperation
}

func (o *gcpOperation) Poll(ctx context.Context) (*speechpb.LongRunningRecognizeResponse, error) {
	return o.op.Poll(ctx)
}

func (o *gcpOperation) Done() bool {
	return o.op.Done()
}
