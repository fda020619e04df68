package mqtt

import (
	"context"
	"encoding/json"
	"time"

	"github.com/golang/glog"

	fx "github.com/robotalks/spectrig/pkg/framework"
	"github.com/robotalks/spectrig/pkg/l1"
	"github.com/robotalks/spectrig/pkg/l1/comm"
)

// Registrar implements l1.Registrar using MQTT. The controller meta is
// published retained on TYPE/ID/meta while connected, and cleared by the
// will or on exit.
type Registrar struct {
	Queue *Queue
	Info  l1.ControllerInfo

	metaJSON  []byte
	registrar comm.Registrar
}

const unregisterTimeout = time.Second

// NewRegistrar creates a Registrar.
func NewRegistrar(brokerURL string, info l1.ControllerInfo) (*Registrar, error) {
	meta, err := json.Marshal(&info.Meta)
	if err != nil {
		return nil, err
	}
	opts, topicPrefix, err := ClientOptionsFromURL(brokerURL)
	if err != nil {
		return nil, err
	}
	opts.SetBinaryWill(topicPrefix+metaTopic(info.Ref), nil, 1, true)
	if opts.ClientID == "" {
		opts.SetClientID("spectrig:" + info.Ref.Name())
	}
	r := &Registrar{
		Queue:    NewQueue(opts, topicPrefix),
		Info:     info,
		metaJSON: meta,
	}
	r.Queue.QoS = QoSFromURL(brokerURL)
	r.Queue.OnConnect = func(*Queue) { r.onConnected() }
	r.registrar.Init(NewPacketReadWriter(r.Queue).ForController(info.Ref))
	return r, nil
}

func metaTopic(ref l1.ControllerRef) string {
	return ref.Name() + "/meta"
}

// SendEvent implements Registrar.
func (r *Registrar) SendEvent(ctx context.Context, msg fx.Message) error {
	return r.registrar.SendEvent(ctx, msg)
}

// AddToLoop implements LoopAdder.
func (r *Registrar) AddToLoop(loop *fx.Loop) {
	loop.Add(&r.registrar)
	loop.AddRunnable(r)
}

// Run implements Runnable.
func (r *Registrar) Run(ctx context.Context) error {
	token := r.Queue.Connect()
	token.Wait()
	if err := token.Error(); err != nil {
		return err
	}
	<-ctx.Done()
	token = r.Queue.PubWith(metaTopic(r.Info.Ref), nil, 1, true)
	if !token.WaitTimeout(unregisterTimeout) {
		glog.Warningf("%s: unregister timeout", r.Info.Ref.Name())
	}
	r.Queue.Close()
	return ctx.Err()
}

func (r *Registrar) onConnected() {
	glog.Infof("register %s", r.Info.Ref.Name())
	r.Queue.PubWith(metaTopic(r.Info.Ref), r.metaJSON, 1, true)
}
