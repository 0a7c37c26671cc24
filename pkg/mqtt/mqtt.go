// Package mqtt connects the bot to an MQTT broker. It publishes bot events
// and answers request/response calls from other services.
package mqtt

import (
	"context"
	"fmt"
	"log"
	"strings"
	"sync"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/goccy/go-json"
	"github.com/google/uuid"

	"github.com/MimirCommunity/MimirBot/pkg/errors"
	"github.com/MimirCommunity/MimirBot/pkg/logger"
)

// Namespace prefixes every topic used by the bot
const Namespace = "mimir"

// Request is the envelope of a request message
type Request struct {
	CorrelationID string          `json:"correlationId"`
	Payload       json.RawMessage `json:"payload,omitempty"`
}

// Response is the envelope of a response message
type Response struct {
	CorrelationID string      `json:"correlationId"`
	Data          interface{} `json:"data"`
	Error         string      `json:"error,omitempty"`
}

// RequestHandler answers a request. payload is the raw JSON sent by the caller.
type RequestHandler func(ctx context.Context, payload json.RawMessage) (interface{}, error)

// Options configures the broker connection
type Options struct {
	Host     string
	Port     string
	Username string
	Password string
	ClientID string
}

// Communicator handles MQTT communication
type Communicator struct {
	client   mqtt.Client
	clientID string

	mu      sync.RWMutex
	pending map[string]chan Response
	routes  []route
	serving bool
}

type route struct {
	pattern string
	handler RequestHandler
}

var (
	communicator *Communicator
	once         sync.Once
)

var wireLogsOnce sync.Once

// wireLogs sends paho's internal error logs to the bot logger
func wireLogs() {
	wireLogsOnce.Do(func() {
		mqtt.ERROR = log.New(logger.Get().Writer(logger.LevelError, "MQTT"), "", 0)
		mqtt.CRITICAL = log.New(logger.Get().Writer(logger.LevelCritical, "MQTT"), "", 0)
	})
}

// Init initializes the global communicator
func Init(opts Options) *Communicator {
	once.Do(func() {
		communicator = NewCommunicator(opts)
	})
	return communicator
}

// Get returns the global communicator, nil when MQTT is disabled
func Get() *Communicator {
	return communicator
}

// NewCommunicator connects to the broker. The connection is retried in the
// background when the broker is unreachable.
func NewCommunicator(opts Options) *Communicator {
	wireLogs()

	mc := &Communicator{
		clientID: opts.ClientID,
		pending:  make(map[string]chan Response),
	}

	uniqueID := fmt.Sprintf("%s_%s", opts.ClientID, uuid.New().String())

	co := mqtt.NewClientOptions().
		AddBroker(fmt.Sprintf("tcp://%s:%s", opts.Host, opts.Port)).
		SetClientID(uniqueID).
		SetUsername(opts.Username).
		SetPassword(opts.Password).
		SetAutoReconnect(true).
		SetConnectRetry(true).
		SetConnectRetryInterval(5 * time.Second).
		SetOnConnectHandler(func(c mqtt.Client) {
			logger.Success(fmt.Sprintf("Connecté au broker MQTT en tant que %s", opts.ClientID), "MQTT")
		}).
		SetConnectionLostHandler(func(c mqtt.Client, err error) {
			logger.Error(fmt.Sprintf("Connexion MQTT perdue : %v", err), "MQTT")
		})

	mc.client = mqtt.NewClient(co)

	token := mc.client.Connect()
	if token.WaitTimeout(10*time.Second) && token.Error() != nil {
		logger.Error(fmt.Sprintf("Erreur de connexion MQTT : %v", token.Error()), "MQTT")
	}

	return mc
}

// Destroy closes the connection
func (mc *Communicator) Destroy() {
	if mc.IsConnected() {
		mc.client.Disconnect(250)
		logger.System("Connexion MQTT fermée.", "MQTT")
		return
	}
	logger.Warn("Le client MQTT n'était pas connecté.", "MQTT")
}

// IsConnected returns true if connected to the broker
func (mc *Communicator) IsConnected() bool {
	return mc.client != nil && mc.client.IsConnected()
}

// Publish sends payload as JSON to topic
func (mc *Communicator) Publish(topic string, payload interface{}) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("mqtt: marshal payload: %w", err)
	}

	token := mc.client.Publish(topic, 0, false, data)
	token.Wait()
	return token.Error()
}

// Request publishes payload on the request topic and waits for the matching
// response or for ctx to end.
func (mc *Communicator) Request(ctx context.Context, topic string, payload interface{}) (interface{}, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("mqtt: marshal payload: %w", err)
	}

	correlationID := uuid.New().String()
	respTopic := responseTopic(topic, correlationID)

	ch := make(chan Response, 1)
	mc.mu.Lock()
	mc.pending[correlationID] = ch
	mc.mu.Unlock()

	defer func() {
		mc.mu.Lock()
		delete(mc.pending, correlationID)
		mc.mu.Unlock()
		mc.client.Unsubscribe(respTopic)
	}()

	token := mc.client.Subscribe(respTopic, 0, func(c mqtt.Client, msg mqtt.Message) {
		var resp Response
		if err := json.Unmarshal(msg.Payload(), &resp); err != nil {
			logger.Warn(fmt.Sprintf("Réponse MQTT illisible sur %s : %v", msg.Topic(), err), "MQTT")
			return
		}
		mc.deliver(resp)
	})
	if token.Wait() && token.Error() != nil {
		return nil, token.Error()
	}

	if err := mc.Publish(requestTopic(topic), Request{CorrelationID: correlationID, Payload: raw}); err != nil {
		return nil, err
	}

	select {
	case resp := <-ch:
		if resp.Error != "" {
			return nil, fmt.Errorf("mqtt: %s: %s", topic, resp.Error)
		}
		return resp.Data, nil
	case <-ctx.Done():
		return nil, fmt.Errorf("mqtt: request %q: %w", topic, ctx.Err())
	}
}

func (mc *Communicator) deliver(resp Response) {
	mc.mu.RLock()
	ch, ok := mc.pending[resp.CorrelationID]
	mc.mu.RUnlock()
	if !ok {
		return
	}
	select {
	case ch <- resp:
	default:
	}
}

// On answers requests published on the given topic. topic may contain
// wildcards; the first matching route wins.
func (mc *Communicator) On(topic string, h RequestHandler) error {
	mc.mu.Lock()
	mc.routes = append(mc.routes, route{pattern: topic, handler: h})
	serving := mc.serving
	mc.serving = true
	mc.mu.Unlock()

	if serving {
		return nil
	}

	token := mc.client.Subscribe(requestTopic("#"), 0, func(c mqtt.Client, msg mqtt.Message) {
		errors.Go(func() { mc.serve(msg.Topic(), msg.Payload()) })
	})
	token.Wait()
	return token.Error()
}

func (mc *Communicator) serve(topic string, payload []byte) {
	h := mc.handlerFor(strings.TrimPrefix(topic, Namespace+"/request/"))
	if h == nil {
		logger.Debug("Aucun handler MQTT pour "+topic, "MQTT")
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	to, body := answer(ctx, h, topic, payload)
	if to == "" {
		return
	}
	token := mc.client.Publish(to, 0, false, body)
	if token.Wait() && token.Error() != nil {
		logger.Error(fmt.Sprintf("Envoi de la réponse sur %s impossible : %v", to, token.Error()), "MQTT")
	}
}

func (mc *Communicator) handlerFor(name string) RequestHandler {
	mc.mu.RLock()
	defer mc.mu.RUnlock()
	for _, r := range mc.routes {
		if TopicMatch(r.pattern, name) {
			return r.handler
		}
	}
	return nil
}

// answer runs h for one request message and returns where and what to reply.
// An empty topic means the request was unreadable.
func answer(ctx context.Context, h RequestHandler, topic string, payload []byte) (string, []byte) {
	var req Request
	if err := json.Unmarshal(payload, &req); err != nil || req.CorrelationID == "" {
		logger.Warn(fmt.Sprintf("Requête MQTT illisible sur %s", topic), "MQTT")
		return "", nil
	}

	resp := Response{CorrelationID: req.CorrelationID}
	data, err := h(ctx, req.Payload)
	if err != nil {
		resp.Error = err.Error()
	} else {
		resp.Data = data
	}

	body, err := json.Marshal(resp)
	if err != nil {
		body, _ = json.Marshal(Response{CorrelationID: req.CorrelationID, Error: err.Error()})
	}

	name := strings.TrimPrefix(topic, Namespace+"/request/")
	return responseTopic(name, req.CorrelationID), body
}

// Subscribe calls handler for every message on topic
func (mc *Communicator) Subscribe(topic string, handler func(topic string, payload []byte)) error {
	token := mc.client.Subscribe(topic, 0, func(c mqtt.Client, msg mqtt.Message) {
		defer errors.RecoverMiddleware()()
		handler(msg.Topic(), msg.Payload())
	})
	token.Wait()
	return token.Error()
}

// Unsubscribe unsubscribes from a topic
func (mc *Communicator) Unsubscribe(topic string) error {
	token := mc.client.Unsubscribe(topic)
	token.Wait()
	return token.Error()
}

func requestTopic(name string) string {
	return Namespace + "/request/" + name
}

func responseTopic(name, correlationID string) string {
	return Namespace + "/response/" + name + "/" + correlationID
}

// TopicMatch reports whether topic matches pattern. '+' matches exactly one
// level, '#' matches any remaining levels and must come last.
func TopicMatch(pattern, topic string) bool {
	patternParts := strings.Split(pattern, "/")
	topicParts := strings.Split(topic, "/")

	for i, part := range patternParts {
		if part == "#" {
			return true
		}
		if i >= len(topicParts) {
			return false
		}
		if part != "+" && part != topicParts[i] {
			return false
		}
	}
	return len(patternParts) == len(topicParts)
}
