package protocol

import (
	"fmt"
	"math"

	"github.com/bioimagesuiteweb/bisweb-sub000/errors"
	"github.com/bioimagesuiteweb/bisweb-sub000/protocol/internal/cursor"
)

func itemPath(i int) string {
	return fmt.Sprintf("item[%d]", i)
}

func (e *Encoder) collectionSize(c *Collection) (int64, error) {
	var body int64
	for i, it := range c.Items {
		n, err := e.sizeOf(it)
		if err != nil {
			return 0, errors.WithPath(err, itemPath(i))
		}
		body += n
	}
	if _, err := compositeDescriptor(KindCollection, body); err != nil {
		return 0, err
	}
	if len(c.Items) > math.MaxInt32 {
		return 0, errors.Overflow(errors.PhaseEncode, KindCollection.String(), len(c.Items), "int32 member count")
	}
	return TopHeaderSize + CompositeHeaderSize + body, nil
}

func (e *Encoder) encodeCollection(w *cursor.Writer, c *Collection) error {
	total, err := e.collectionSize(c)
	if err != nil {
		return err
	}
	h := Header{
		Magic:          e.reg.Magic(KindCollection),
		SecondaryBytes: CompositeHeaderSize,
		Descriptor:     int32(total - TopHeaderSize - CompositeHeaderSize),
	}
	if err := writeHeader(w, h); err != nil {
		return err
	}
	if err := w.Int32(int32(len(c.Items))); err != nil {
		return err
	}
	for i, it := range c.Items {
		if err := e.encode(w, it); err != nil {
			return errors.WithPath(err, itemPath(i))
		}
	}
	return nil
}

func (d *Decoder) decodeCollection(r *cursor.Reader, h Header, off int) (Entity, error) {
	count, err := d.compositeCount(KindCollection, r, h, off)
	if err != nil {
		return nil, err
	}
	c := &Collection{Items: make([]Entity, 0, count)}
	for i := 0; i < count; i++ {
		it, err := d.decode(r)
		if err != nil {
			return nil, errors.WithPath(err, itemPath(i))
		}
		c.Items = append(c.Items, it)
	}
	if err := checkComposite(KindCollection, h, off, r.Pos()); err != nil {
		return nil, err
	}
	return c, nil
}
