package mqtt

import (
	"fmt"
	"sort"
)

// Subscribe registers handler for topic, which may contain the + and #
// wildcards. Subscribing to the same topic again replaces the handler.
//
// The subscription is remembered and replayed after every reconnect, so
// the caller subscribes once per topic for the lifetime of the client.
// paho runs handlers on its own goroutines; they should return quickly.
//
// Parameters:
//   - topic: Topic pattern, e.g. mqtt.Topics{}.DevicePIR(id)
//   - qos: Maximum QoS of delivered messages
//   - handler: Called for each message; a returned error is logged
//
// Returns:
//   - error: ErrInvalidTopic, ErrInvalidQoS, ErrNotConnected or a wrapped
//     ErrSubscribeFailed
func (c *Client) Subscribe(topic string, qos byte, handler MessageHandler) error {
	if topic == "" {
		return ErrInvalidTopic
	}
	if qos > maxQoS {
		return ErrInvalidQoS
	}
	if handler == nil {
		return fmt.Errorf("%w: handler cannot be nil", ErrSubscribeFailed)
	}
	if !c.IsConnected() {
		return ErrNotConnected
	}

	if err := wait(c.client.Subscribe(topic, qos, c.wrapHandler(handler))); err != nil {
		return fmt.Errorf("%w: %s: %w", ErrSubscribeFailed, topic, err)
	}

	c.subMu.Lock()
	c.subscriptions[topic] = subscription{qos: qos, handler: handler}
	c.subMu.Unlock()
	return nil
}

// Unsubscribe removes the subscription for topic. The topic is forgotten
// even when the broker call fails, so it is not replayed on reconnect.
//
// Returns:
//   - error: ErrInvalidTopic, ErrNotConnected or a wrapped
//     ErrUnsubscribeFailed
func (c *Client) Unsubscribe(topic string) error {
	if topic == "" {
		return ErrInvalidTopic
	}

	c.subMu.Lock()
	delete(c.subscriptions, topic)
	c.subMu.Unlock()

	if !c.IsConnected() {
		return ErrNotConnected
	}
	if err := wait(c.client.Unsubscribe(topic)); err != nil {
		return fmt.Errorf("%w: %s: %w", ErrUnsubscribeFailed, topic, err)
	}
	return nil
}

// Subscriptions returns the remembered topic patterns in sorted order.
func (c *Client) Subscriptions() []string {
	c.subMu.RLock()
	defer c.subMu.RUnlock()
	topics := make([]string, 0, len(c.subscriptions))
	for t := range c.subscriptions {
		topics = append(topics, t)
	}
	sort.Strings(topics)
	return topics
}

// restoreSubscriptions replays every remembered subscription. It runs on
// paho's connect goroutine after a reconnect.
func (c *Client) restoreSubscriptions() {
	c.subMu.RLock()
	subs := make(map[string]subscription, len(c.subscriptions))
	for t, s := range c.subscriptions {
		subs[t] = s
	}
	c.subMu.RUnlock()

	for topic, sub := range subs {
		if err := wait(c.client.Subscribe(topic, sub.qos, c.wrapHandler(sub.handler))); err != nil {
			c.getLogger().Warn("restoring MQTT subscription failed", "topic", topic, "error", err)
		}
	}
	if len(subs) > 0 {
		c.getLogger().Info("MQTT subscriptions restored", "count", len(subs))
	}
}
