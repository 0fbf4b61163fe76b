// Package events defines what the redistribution pipeline publishes while a
// run progresses. Subscribers (the MQTT pickup notifier, for instance) read
// them from an eventbus.TypedBus[events.Event].
package events
