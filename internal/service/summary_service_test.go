package service

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"testing"
	"time"

	"motchat/internal/config"
	"motchat/internal/mot"
	"motchat/internal/storage"

	einoModel "github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeFetcher struct {
	vehicle *mot.Vehicle
	err     error
	calls   int
}

func (f *fakeFetcher) VehicleHistory(_ context.Context, _ string) (*mot.Vehicle, error) {
	f.calls++
	return f.vehicle, f.err
}

type fakeModel struct {
	chunks []string
	err    error
	prompt string
	ctx    context.Context
}

func (m *fakeModel) Generate(_ context.Context, _ []*schema.Message, _ ...einoModel.Option) (*schema.Message, error) {
	return nil, errors.New("not used")
}

func (m *fakeModel) Stream(ctx context.Context, input []*schema.Message, _ ...einoModel.Option) (*schema.StreamReader[*schema.Message], error) {
	if m.err != nil {
		return nil, m.err
	}
	m.ctx = ctx
	m.prompt = input[0].Content
	msgs := make([]*schema.Message, 0, len(m.chunks))
	for _, c := range m.chunks {
		msgs = append(msgs, schema.AssistantMessage(c, nil))
	}
	return schema.StreamReaderFromArray(msgs), nil
}

func testVehicle() *mot.Vehicle {
	return &mot.Vehicle{
		Registration: "AB12CDE",
		MotTests: []json.RawMessage{
			json.RawMessage(`{"completedDate":"2023-03-01","testResult":"PASSED","odometerValue":"1000","odometerUnit":"mi"}`),
		},
	}
}

func testConfig() *config.Config {
	return &config.Config{
		Model:  config.ModelConfig{Prompt: "Summarize the following vehicle MOT history:\n\n"},
		Stream: config.StreamConfig{JobTTL: time.Minute},
	}
}

func TestSummaryService_StartAndTake(t *testing.T) {
	fetcher := &fakeFetcher{vehicle: testVehicle()}
	chatModel := &fakeModel{chunks: []string{"Hel", "lo"}}
	svc, err := NewSummaryService(fetcher, chatModel, storage.NewMemoryStorage(), testConfig())
	require.NoError(t, err)
	defer svc.Close()

	id, err := svc.Start(context.Background(), "AB12CDE")
	require.NoError(t, err)
	require.NotEmpty(t, id)
	assert.Contains(t, chatModel.prompt, "Summarize the following vehicle MOT history:\n\nVehicle Registration: AB12CDE")

	job, err := svc.Take("")
	require.NoError(t, err)
	assert.Equal(t, id, job.ID)
	defer job.Release()

	var text string
	for {
		msg, err := job.Stream.Recv()
		if err == io.EOF {
			break
		}
		require.NoError(t, err)
		text += msg.Content
	}
	assert.Equal(t, "Hello", text)

	_, err = svc.Take(id)
	require.ErrorIs(t, err, storage.ErrJobNotFound)
}

func TestSummaryService_ReleaseCancelsModelContext(t *testing.T) {
	chatModel := &fakeModel{chunks: []string{"x"}}
	svc, err := NewSummaryService(&fakeFetcher{vehicle: testVehicle()}, chatModel, storage.NewMemoryStorage(), testConfig())
	require.NoError(t, err)
	defer svc.Close()

	id, err := svc.Start(context.Background(), "AB12CDE")
	require.NoError(t, err)

	job, err := svc.Take(id)
	require.NoError(t, err)
	require.NoError(t, chatModel.ctx.Err())

	job.Release()
	require.ErrorIs(t, chatModel.ctx.Err(), context.Canceled)
}

func TestSummaryService_NewSubmissionReleasesUntakenJob(t *testing.T) {
	chatModel := &fakeModel{chunks: []string{"x"}}
	store := storage.NewMemoryStorage()
	svc, err := NewSummaryService(&fakeFetcher{vehicle: testVehicle()}, chatModel, store, testConfig())
	require.NoError(t, err)
	defer svc.Close()

	_, err = svc.Start(context.Background(), "AB12CDE")
	require.NoError(t, err)
	firstCtx := chatModel.ctx

	second, err := svc.Start(context.Background(), "CD34EFG")
	require.NoError(t, err)

	assert.Equal(t, 1, store.Len())
	require.ErrorIs(t, firstCtx.Err(), context.Canceled)
	require.NoError(t, chatModel.ctx.Err())

	job, err := svc.Take("")
	require.NoError(t, err)
	defer job.Release()
	assert.Equal(t, second, job.ID)
	assert.Zero(t, store.Len())
}

func TestSummaryService_Errors(t *testing.T) {
	cases := []struct {
		name         string
		registration string
		fetcher      *fakeFetcher
		model        *fakeModel
		want         error
	}{
		{name: "empty registration", registration: "", fetcher: &fakeFetcher{}, model: &fakeModel{}, want: ErrRegistrationRequired},
		{name: "vehicle not found", registration: "X", fetcher: &fakeFetcher{err: mot.ErrVehicleNotFound}, model: &fakeModel{}, want: mot.ErrNoTestData},
		{name: "no tests", registration: "X", fetcher: &fakeFetcher{vehicle: &mot.Vehicle{}}, model: &fakeModel{}, want: mot.ErrNoTestData},
		{name: "upstream", registration: "X", fetcher: &fakeFetcher{err: errors.New("dial tcp")}, model: &fakeModel{}},
		{name: "model", registration: "X", fetcher: &fakeFetcher{vehicle: testVehicle()}, model: &fakeModel{err: errors.New("quota")}},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			store := storage.NewMemoryStorage()
			svc, err := NewSummaryService(tc.fetcher, tc.model, store, testConfig())
			require.NoError(t, err)
			defer svc.Close()

			_, err = svc.Start(context.Background(), tc.registration)
			require.Error(t, err)
			if tc.want != nil {
				require.ErrorIs(t, err, tc.want)
			} else {
				assert.False(t, errors.Is(err, mot.ErrNoTestData))
				assert.False(t, errors.Is(err, ErrRegistrationRequired))
			}
			assert.Zero(t, store.Len())
		})
	}
}

func TestSummaryService_EmptyRegistrationSkipsLookup(t *testing.T) {
	fetcher := &fakeFetcher{}
	svc, err := NewSummaryService(fetcher, &fakeModel{}, storage.NewMemoryStorage(), testConfig())
	require.NoError(t, err)
	defer svc.Close()

	_, err = svc.Start(context.Background(), "")
	require.ErrorIs(t, err, ErrRegistrationRequired)
	assert.Zero(t, fetcher.calls)
}

func TestSummaryService_CleanupLoop(t *testing.T) {
	cfg := testConfig()
	cfg.Stream = config.StreamConfig{JobTTL: 10 * time.Millisecond, CleanupInterval: 5 * time.Millisecond}
	store := storage.NewMemoryStorage()
	svc, err := NewSummaryService(&fakeFetcher{vehicle: testVehicle()}, &fakeModel{chunks: []string{"x"}}, store, cfg)
	require.NoError(t, err)
	defer svc.Close()

	_, err = svc.Start(context.Background(), "AB12CDE")
	require.NoError(t, err)

	assert.Eventually(t, func() bool { return store.Len() == 0 }, time.Second, 5*time.Millisecond)
}

func TestSummaryPrompt_KeepsBracesInSummary(t *testing.T) {
	msgs, err := newSummaryPrompt().Format(context.Background(), map[string]any{
		promptKey:  "Summarize:\n\n",
		summaryKey: "Defects: {none}",
	})
	require.NoError(t, err)
	require.Len(t, msgs, 1)
	assert.Equal(t, schema.User, msgs[0].Role)
	assert.Equal(t, "Summarize:\n\nDefects: {none}", msgs[0].Content)
}
