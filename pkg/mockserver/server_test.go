package mockserver_test

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/loomlabs/loom/pkg/chat"
	"github.com/loomlabs/loom/pkg/history"
	"github.com/loomlabs/loom/pkg/mockserver"
	"github.com/loomlabs/loom/pkg/providers"
)

var _ = Describe("Server", func() {
	var (
		backend *httptest.Server
		opts    []mockserver.Option
	)

	JustBeforeEach(func() {
		backend = httptest.NewServer(mockserver.New(opts...).Handler())
		DeferCleanup(backend.Close)
	})

	AfterEach(func() {
		opts = nil
	})

	Describe("health endpoints", func() {
		It("answers ping with pong", func() {
			Expect(providers.NewClient(backend.URL).Ping(context.Background())).To(Succeed())
		})

		It("reports the mock provider as active", func() {
			provider, err := providers.NewClient(backend.URL).ActiveProvider(context.Background())
			Expect(err).NotTo(HaveOccurred())
			Expect(provider).To(Equal("mock"))
		})
	})

	Describe("non-streaming chat", func() {
		It("returns the full reply in one response", func() {
			client := chat.NewClient(backend.URL)
			msg, err := client.SendMessage(context.Background(), chat.ChatRequest{
				Message:  "hello",
				ThreadID: "t-plain",
			})
			Expect(err).NotTo(HaveOccurred())
			Expect(msg.IsAssistant()).To(BeTrue())
			Expect(msg.Content).To(Equal("You said: hello"))
		})

		It("rejects a blank message", func() {
			resp, err := http.Post(backend.URL+"/chat", "application/json",
				strings.NewReader(`{"message":"   "}`))
			Expect(err).NotTo(HaveOccurred())
			defer resp.Body.Close()
			Expect(resp.StatusCode).To(Equal(http.StatusBadRequest))
		})

		It("rejects a malformed body", func() {
			resp, err := http.Post(backend.URL+"/chat", "application/json",
				strings.NewReader(`{not json`))
			Expect(err).NotTo(HaveOccurred())
			defer resp.Body.Close()
			Expect(resp.StatusCode).To(Equal(http.StatusBadRequest))
		})
	})

	Describe("streaming chat", func() {
		It("frames every record as a data line with a blank separator", func() {
			resp, err := http.Post(backend.URL+"/chat/stream", "application/json",
				strings.NewReader(`{"message":"hi","thread_id":"t-wire"}`))
			Expect(err).NotTo(HaveOccurred())
			defer resp.Body.Close()

			Expect(resp.Header.Get("Content-Type")).To(Equal("text/event-stream"))

			body, err := io.ReadAll(resp.Body)
			Expect(err).NotTo(HaveOccurred())

			records := strings.Split(strings.TrimSuffix(string(body), "\n\n"), "\n\n")
			Expect(len(records)).To(BeNumerically(">=", 2))
			for _, record := range records {
				Expect(record).To(HavePrefix("data: "))

				var envelope struct {
					Message json.RawMessage `json:"message"`
				}
				Expect(json.Unmarshal([]byte(strings.TrimPrefix(record, "data: ")), &envelope)).To(Succeed())
				Expect(envelope.Message).NotTo(BeEmpty())
			}
		})

		Context("with a scripted responder", func() {
			BeforeEach(func() {
				opts = append(opts, mockserver.WithResponder(mockserver.ResponderFunc(func(string) []mockserver.Record {
					return []mockserver.Record{
						mockserver.TextRecord("Let me check. "),
						mockserver.ToolRecord("calculator", "4"),
						mockserver.TextRecord("The answer is 4."),
						mockserver.EndRecord(),
					}
				})))
			})

			It("drives a full session turn through the wire protocol", func() {
				session := chat.NewSession(chat.NewStreamingClient(backend.URL), "t-session")

				var deltas []string
				session.OnDelta(func(d string) { deltas = append(deltas, d) })

				transcript := session.Send(context.Background(), "what is 2+2?")

				Expect(transcript.Messages).To(HaveLen(4))
				Expect(transcript.Messages[0].IsUser()).To(BeTrue())
				Expect(transcript.Messages[0].Content).To(Equal("what is 2+2?"))
				Expect(transcript.Messages[1].IsAssistant()).To(BeTrue())
				Expect(transcript.Messages[1].Content).To(Equal("Let me check. "))
				Expect(transcript.Messages[2].IsTool()).To(BeTrue())
				Expect(transcript.Messages[2].ToolName).To(Equal("calculator"))
				Expect(transcript.Messages[2].Content).To(Equal("4"))
				Expect(transcript.Messages[3].IsAssistant()).To(BeTrue())
				Expect(transcript.Messages[3].Content).To(Equal("The answer is 4."))

				Expect(deltas).To(Equal([]string{"Let me check. ", "The answer is 4."}))
				Expect(session.IsLoading()).To(BeFalse())
			})
		})

		Context("with an error script", func() {
			BeforeEach(func() {
				opts = append(opts, mockserver.WithResponder(mockserver.ResponderFunc(func(string) []mockserver.Record {
					return []mockserver.Record{
						mockserver.ErrorRecord("model unavailable"),
						mockserver.EndRecord(),
					}
				})))
			})

			It("surfaces the error as a transcript bubble", func() {
				session := chat.NewSession(chat.NewStreamingClient(backend.URL), "t-err")
				transcript := session.Send(context.Background(), "hello")

				Expect(transcript.Messages).To(HaveLen(2))
				last, ok := chat.LastMessage(transcript)
				Expect(ok).To(BeTrue())
				Expect(last.IsError()).To(BeTrue())
				Expect(last.Content).To(Equal("Error: model unavailable"))
			})
		})
	})

	Describe("history", func() {
		var client *history.Client

		JustBeforeEach(func() {
			client = history.NewClient(backend.URL)
		})

		It("starts empty", func() {
			conversations, err := client.List(context.Background())
			Expect(err).NotTo(HaveOccurred())
			Expect(conversations).To(BeEmpty())
		})

		It("records completed turns and serves them back", func() {
			session := chat.NewSession(chat.NewStreamingClient(backend.URL), "t-hist")
			session.Send(context.Background(), "please use a tool")

			conversations, err := client.List(context.Background())
			Expect(err).NotTo(HaveOccurred())
			Expect(conversations).To(HaveLen(1))
			Expect(conversations[0].ThreadID).To(Equal("t-hist"))
			Expect(conversations[0].Preview).To(HavePrefix("please use a tool"))

			transcript, err := client.Messages(context.Background(), "t-hist")
			Expect(err).NotTo(HaveOccurred())
			Expect(chat.MessageCount(transcript)).To(BeNumerically(">=", 3))
			Expect(transcript.Messages[0].IsUser()).To(BeTrue())

			var sawTool bool
			for _, msg := range transcript.Messages {
				if msg.IsTool() {
					sawTool = true
					Expect(msg.ToolName).To(Equal("echo"))
				}
			}
			Expect(sawTool).To(BeTrue())
		})

		It("lists the most recently active conversation first", func() {
			session1 := chat.NewSession(chat.NewStreamingClient(backend.URL), "t-first")
			session1.Send(context.Background(), "one")
			session2 := chat.NewSession(chat.NewStreamingClient(backend.URL), "t-second")
			session2.Send(context.Background(), "two")

			conversations, err := client.List(context.Background())
			Expect(err).NotTo(HaveOccurred())
			Expect(conversations).To(HaveLen(2))
			Expect(conversations[0].ThreadID).To(Equal("t-second"))
			Expect(conversations[1].ThreadID).To(Equal("t-first"))
		})

		It("serves an empty message list for an unknown thread", func() {
			transcript, err := client.Messages(context.Background(), "never-seen")
			Expect(err).NotTo(HaveOccurred())
			Expect(chat.IsEmpty(transcript)).To(BeTrue())
		})

		It("deletes a conversation", func() {
			session := chat.NewSession(chat.NewStreamingClient(backend.URL), "t-del")
			session.Send(context.Background(), "delete me")

			Expect(client.Delete(context.Background(), "t-del")).To(Succeed())

			conversations, err := client.List(context.Background())
			Expect(err).NotTo(HaveOccurred())
			Expect(conversations).To(BeEmpty())
		})

		It("answers 404 for deleting an unknown thread", func() {
			err := client.Delete(context.Background(), "ghost")
			Expect(err).To(HaveOccurred())
			Expect(err.Error()).To(ContainSubstring("404"))
		})
	})

	Describe("resuming a conversation", func() {
		It("round-trips a stored thread back into a live session", func() {
			first := chat.NewSession(chat.NewStreamingClient(backend.URL), "t-resume")
			first.Send(context.Background(), "remember this")

			stored, err := history.NewClient(backend.URL).Messages(context.Background(), "t-resume")
			Expect(err).NotTo(HaveOccurred())

			resumed := chat.NewSession(chat.NewStreamingClient(backend.URL), "")
			resumed.SetTranscript(stored)
			Expect(resumed.ThreadID()).To(Equal("t-resume"))

			before := chat.MessageCount(resumed.Transcript())
			transcript := resumed.Send(context.Background(), "and this")
			Expect(chat.MessageCount(transcript)).To(BeNumerically(">", before))
			Expect(transcript.ThreadID).To(Equal("t-resume"))
		})
	})
})

var _ = Describe("EchoResponder", func() {
	It("always terminates with an end record", func() {
		records := mockserver.EchoResponder{}.Respond("hello")
		Expect(records[len(records)-1].Type).To(Equal("end"))
	})

	It("streams the acknowledgement word by word", func() {
		records := mockserver.EchoResponder{}.Respond("hi there")

		var reply strings.Builder
		for _, record := range records {
			if record.Type == "text" {
				reply.WriteString(record.Content)
			}
		}
		Expect(reply.String()).To(Equal(fmt.Sprintf("You said: %s", "hi there")))
	})

	It("invokes the fake tool when asked", func() {
		records := mockserver.EchoResponder{}.Respond("run a tool for me")

		var toolNames []string
		for _, record := range records {
			if record.Type == "tool_result" {
				toolNames = append(toolNames, record.ToolName)
			}
		}
		Expect(toolNames).To(Equal([]string{"echo"}))
	})
})
